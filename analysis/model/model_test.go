// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"embed"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-icfg/internal/funcutil"
)

//go:embed testdata
var testfsys embed.FS

func loadTestProgram(t *testing.T, name string) *Program {
	filename := filepath.Join("testdata", name)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read file %v: %v", filename, err)
	}
	p, err := Parse(filename, b)
	if err != nil {
		t.Fatalf("failed to load %v: %v", filename, err)
	}
	return p
}

func names[T interface{ String() string }](a []T) []string {
	return funcutil.Map(a, func(x T) string { return x.String() })
}

func statement(t *testing.T, p *Program, proc string, id string) *Stmt {
	pr, ok := p.Procedure(proc)
	if !ok {
		t.Fatalf("no procedure %s", proc)
	}
	s, ok := pr.Statement(id)
	if !ok {
		t.Fatalf("no statement %s in %s", id, proc)
	}
	return s
}

func TestProcedures(t *testing.T) {
	p := loadTestProgram(t, "shapes.yaml")
	expected := []string{"Main.main", "Square.new", "Polygon.area", "Circle.area", "Shape.area", "io.read", "Math.pi"}
	if got := names(p.Procedures()); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected procedures %v, got %v", expected, got)
	}
	main, _ := p.Procedure("Main.main")
	if len(p.Statements(main)) != 5 {
		t.Errorf("expected 5 statements in main")
	}
	for name, expected := range map[string][3]bool{
		// has body, in model, library
		"Main.main":  {true, true, false},
		"Shape.area": {false, false, true},
		"io.read":    {false, false, true},
		"Math.pi":    {false, false, true},
	} {
		proc, _ := p.Procedure(name)
		got := [3]bool{p.HasBody(proc), p.InModel(proc), p.IsLibrary(proc)}
		if got != expected {
			t.Errorf("%s: expected has body, in model, library = %v, got %v", name, expected, got)
		}
	}
	pi, _ := p.Procedure("Math.pi")
	if q := p.Qualifier(pi); q != "Math" {
		t.Errorf("expected qualifier Math, got %s", q)
	}
	polygonArea, _ := p.Procedure("Polygon.area")
	if !reflect.DeepEqual(p.DeclaredExceptions(polygonArea), []string{"IOException"}) {
		t.Errorf("Polygon.area should declare IOException")
	}
	if p.UncheckedException() != DefaultUncheckedException {
		t.Errorf("expected default unchecked exception")
	}
}

func TestControlFlowAndGuards(t *testing.T) {
	p := loadTestProgram(t, "shapes.yaml")
	for id, expected := range map[string][]string{
		"start": {"Main.main:draw"},
		"draw":  {"Main.main:io", "Main.main:catch"},
		"io":    {"Main.main:done", "Main.main:catch"},
		"done":  {},
		"catch": {"Main.main:done"},
	} {
		s := statement(t, p, "Main.main", id)
		got := names(p.Successors(s))
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("successors of %s: expected %v, got %v", id, expected, got)
		}
	}
	guards := p.Guards(statement(t, p, "Main.main", "draw"))
	if !reflect.DeepEqual(guards, []Guard{{Exception: "IOException", Begin: 1, End: 3}}) {
		t.Errorf("unexpected guards %v", guards)
	}
	if len(p.Guards(statement(t, p, "Main.main", "done"))) != 0 {
		t.Errorf("guard range end should be excluded")
	}
	effects := p.Effects(statement(t, p, "Main.main", "io"))
	if !reflect.DeepEqual(effects.Faults, []string{"NullPointerException"}) || effects.Returns {
		t.Errorf("unexpected effects %v", effects)
	}
	if !p.Effects(statement(t, p, "Main.main", "done")).Returns {
		t.Errorf("done should return")
	}
	if p.Effects(statement(t, p, "Polygon.area", "0")).Throws != "IOException" {
		t.Errorf("Polygon.area should throw IOException")
	}
}

func TestCalls(t *testing.T) {
	p := loadTestProgram(t, "shapes.yaml")
	call := p.CallAt(statement(t, p, "Main.main", "start"))
	if call.Kind != StaticCall || call.Callee.String() != "Square.new" {
		t.Errorf("unexpected call %v", call)
	}
	call = p.CallAt(statement(t, p, "Main.main", "draw"))
	if call.Kind != DispatchedCall || call.Callee.String() != "Shape.area" || call.DeclaringType != "Shape" ||
		call.Signature != "area" {
		t.Errorf("unexpected call %v", call)
	}
	call = p.CallAt(statement(t, p, "Circle.area", "0"))
	if call.Kind != UnmodeledCall || call.Callee.String() != "Math.pi" {
		t.Errorf("unexpected call %v", call)
	}
	call = p.CallAt(statement(t, p, "Circle.area", "1"))
	if call.Kind != ResolvedCall || !reflect.DeepEqual(names(call.Candidates), []string{"Polygon.area", "Circle.area"}) {
		t.Errorf("unexpected call %v", call)
	}
	if p.CallAt(statement(t, p, "Main.main", "done")).Kind != NoCall {
		t.Errorf("return should not call")
	}
}

func TestHierarchy(t *testing.T) {
	p := loadTestProgram(t, "shapes.yaml")
	if !p.IsInterface("Shape") || p.IsInterface("Polygon") {
		t.Errorf("only Shape is an interface")
	}
	if !p.IsSubtype("Square", "Shape") || !p.IsSubtype("Shape", "Shape") || p.IsSubtype("Shape", "Square") {
		t.Errorf("unexpected subtype relation")
	}
	if !p.IsSubtype("RuntimeException", "Exception") || p.IsSubtype("IOException", "RuntimeException") {
		t.Errorf("unexpected exception hierarchy")
	}
	if got := p.ImplementersOf("Shape"); !reflect.DeepEqual(got, []string{"Circle", "Polygon", "Square"}) {
		t.Errorf("unexpected implementers %v", got)
	}
	if got := p.SubtypesOf("Polygon"); !reflect.DeepEqual(got, []string{"Square"}) {
		t.Errorf("unexpected subtypes %v", got)
	}
	if m, ok := p.DeclaredMethod("Polygon", "area"); !ok || m.String() != "Polygon.area" {
		t.Errorf("Polygon should declare area")
	}
	if _, ok := p.DeclaredMethod("Square", "area"); ok {
		t.Errorf("Square should not declare area")
	}
}

func TestParseErrors(t *testing.T) {
	for file, msg := range map[string]string{
		"bad_successor.yaml": "unknown successor nowhere",
		"bad_call.yaml":      "more than one kind of call",
		"duplicate.yaml":     "duplicate procedure A.f",
		"bad_guard.yaml":     "range done..catch is empty or reversed",
	} {
		filename := filepath.Join("testdata", file)
		b, err := testfsys.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		p, err := Parse(filename, b)
		if p != nil || err == nil || !strings.Contains(err.Error(), msg) {
			t.Errorf("%s: expected error containing %q, got %v", file, msg, err)
		}
	}
	if _, err := Parse("inline", []byte("procedures: [")); err == nil {
		t.Errorf("expected a yaml error")
	}
}

func TestBuildWithoutUncheckedException(t *testing.T) {
	empty := ""
	p, err := Build(Description{
		UncheckedException: &empty,
		Procedures: []ProcedureDesc{
			{Name: "A.f", Body: []StatementDesc{{Invoke: &InvokeDesc{Type: "A", Signature: "f"}}, {Return: true}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.UncheckedException() != "" {
		t.Errorf("expected no unchecked exception")
	}
	call := p.CallAt(statement(t, p, "A.f", "0"))
	if call.Callee.String() != "A.f" {
		t.Errorf("invoke should default to the method declared by the receiver type, got %v", call.Callee)
	}
}
