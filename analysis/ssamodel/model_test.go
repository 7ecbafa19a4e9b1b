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

package ssamodel

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/icfg"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"golang.org/x/tools/go/loader"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func loadModel(t *testing.T, callgraph string) *Model {
	lcfg := loader.Config{}
	lcfg.CreateFromFilenames("main", filepath.Join("testdata", "shapes.go"))
	lprog, err := lcfg.Load()
	if err != nil {
		t.Fatalf("failed to load program: %v", err)
	}
	//goland:noinspection ALL
	program := ssautil.CreateProgram(lprog, ssa.BuilderMode(0))
	program.Build()
	cfg := config.NewDefault()
	cfg.CallgraphAnalysis = callgraph
	cfg.LogLevel = int(config.ErrLevel)
	m, err := New(program, []*ssa.Package{program.Package(lprog.Created[0].Pkg)}, cfg, config.NewLogGroup(cfg))
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	return m
}

func function(t *testing.T, m *Model, name string) *ssa.Function {
	for _, p := range m.Procedures() {
		if p.String() == name {
			return p.(*ssa.Function)
		}
	}
	t.Fatalf("no function %s", name)
	return nil
}

// find returns the first statement of the function on which p returns true
func find(t *testing.T, m *Model, f *ssa.Function, p func(model.Statement) bool) model.Statement {
	for _, s := range m.Statements(f) {
		if p(s) {
			return s
		}
	}
	t.Fatalf("no matching statement in %s", f)
	return nil
}

func calls(m *Model, name string) func(model.Statement) bool {
	return func(s model.Statement) bool {
		c := m.CallAt(s)
		return c.Callee != nil && c.Callee.String() == name ||
			funcutil.Exists(c.Candidates, func(p model.Procedure) bool { return p.String() == name })
	}
}

func TestProcedures(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	names := funcutil.Map(m.Procedures(), model.Procedure.String)
	for _, expected := range []string{"main.total", "main.fail", "main.safe", "main.safe$1", "main.fact", "main.apply",
		"main.main", "main.init", "(main.Square).Area", "(*main.Circle).Area"} {
		if !funcutil.Contains(names, expected) {
			t.Errorf("missing procedure %s in %v", expected, names)
		}
	}
	if funcutil.Contains(names, "(*main.Square).Area") {
		t.Errorf("wrappers are not procedures of the application")
	}
	for _, p := range m.Procedures() {
		if !m.InModel(p) || m.IsLibrary(p) || m.Qualifier(p) != "main" {
			t.Errorf("%s should be in the model", p)
		}
	}
}

func TestEffects(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	throw := find(t, m, function(t, m, "main.fail"), func(s model.Statement) bool {
		return m.Effects(s).Throws != ""
	})
	if m.Effects(throw).Throws != "string" {
		t.Errorf("expected panic of type string, got %q", m.Effects(throw).Throws)
	}
	if len(m.Successors(throw)) != 0 {
		t.Errorf("a panic has no successors")
	}
	find(t, m, function(t, m, "(main.Square).Area"), func(s model.Statement) bool {
		return m.Effects(s).Returns
	})
	hasFault := func(fault string) func(model.Statement) bool {
		return func(s model.Statement) bool { return funcutil.Contains(m.Effects(s).Faults, fault) }
	}
	find(t, m, function(t, m, "main.total"), hasFault(BoundsFault))
	find(t, m, function(t, m, "(*main.Circle).Area"), hasFault(NilFault))
}

func TestGuards(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	safe := function(t, m, "main.safe")
	call := find(t, m, safe, calls(m, "main.fail"))
	guards := m.Guards(call)
	if len(guards) != 1 || guards[0].Exception != AnyType {
		t.Fatalf("expected the call to be guarded, got %v", guards)
	}
	statements := m.Statements(safe)
	handler := statements[guards[0].End]
	if handler.(ssa.Instruction).Block() != safe.Recover {
		t.Errorf("the guard should end at the recover block")
	}
	if !funcutil.Contains(m.Successors(call), handler) {
		t.Errorf("the handler should be a successor of the guarded call")
	}
	if len(m.Guards(handler)) != 0 {
		t.Errorf("the recover block is not guarded")
	}
	if !m.IsSubtype(m.UncheckedException(), guards[0].Exception) {
		t.Errorf("the guard should catch runtime errors")
	}

	fail := function(t, m, "main.fail")
	for _, s := range m.Statements(fail) {
		if len(m.Guards(s)) != 0 {
			t.Errorf("%s should not be guarded", s)
		}
	}
}

func TestCalls(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	invoke := find(t, m, function(t, m, "main.total"), calls(m, "(main.Square).Area"))
	call := m.CallAt(invoke)
	if call.Kind != model.ResolvedCall || call.DeclaringType != "main.Shape" || call.Signature != "Area" {
		t.Errorf("unexpected call %+v", call)
	}
	names := funcutil.Map(call.Candidates, model.Procedure.String)
	if !reflect.DeepEqual(names, []string{"(*main.Circle).Area", "(main.Square).Area"}) {
		t.Errorf("unexpected candidates %v", names)
	}

	static := m.CallAt(find(t, m, function(t, m, "main.main"), calls(m, "main.fact")))
	if static.Kind != model.StaticCall {
		t.Errorf("expected a static call, got %s", static.Kind)
	}

	dynamic := m.CallAt(find(t, m, function(t, m, "main.apply"), func(s model.Statement) bool {
		return m.CallAt(s).Kind != model.NoCall
	}))
	if dynamic.Kind != model.UnmodeledCall || dynamic.Callee.String() != "func(int) int" {
		t.Errorf("unexpected call %+v", dynamic)
	}
	if m.HasBody(dynamic.Callee) || !m.IsLibrary(dynamic.Callee) || m.InModel(dynamic.Callee) {
		t.Errorf("a function value has no known body")
	}

	deferred := m.CallAt(find(t, m, function(t, m, "main.safe"), func(s model.Statement) bool {
		_, ok := s.(*ssa.Defer)
		return ok
	}))
	if deferred.Kind != model.StaticCall || deferred.Callee.String() != "main.safe$1" {
		t.Errorf("unexpected deferred call %+v", deferred)
	}
}

func TestHierarchy(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	if !m.IsInterface("main.Shape") || m.IsInterface("main.Square") {
		t.Errorf("wrong interface types")
	}
	implementers := m.ImplementersOf("main.Shape")
	for _, expected := range []string{"*main.Circle", "main.Square", "*main.Square"} {
		if !funcutil.Contains(implementers, expected) {
			t.Errorf("%s should implement main.Shape, got %v", expected, implementers)
		}
	}
	if funcutil.Contains(implementers, "main.Circle") || len(m.SubtypesOf("main.Square")) != 0 {
		t.Errorf("unexpected subtypes")
	}
	if f, ok := m.DeclaredMethod("main.Square", "Area"); !ok || f.String() != "(main.Square).Area" {
		t.Errorf("expected (main.Square).Area to be declared")
	}
	if _, ok := m.DeclaredMethod("*main.Square", "Area"); ok {
		t.Errorf("wrappers are not declared methods")
	}
	for _, tc := range []struct {
		sub, super string
		expected   bool
	}{
		{"main.Square", "main.Shape", true},
		{"main.Circle", "main.Shape", false},
		{"*main.Circle", "main.Shape", true},
		{"string", AnyType, true},
		{BoundsFault, "error", true},
		{TypeAssertionFault, RuntimeError, true},
		{"string", "error", false},
		{"main.Shape", "main.Shape", true},
	} {
		if m.IsSubtype(tc.sub, tc.super) != tc.expected {
			t.Errorf("IsSubtype(%s, %s) should be %v", tc.sub, tc.super, tc.expected)
		}
	}
}

func TestCallgraphModes(t *testing.T) {
	for _, mode := range []string{config.CallgraphStatic, config.CallgraphCha, config.CallgraphRta,
		config.CallgraphVta} {
		m := loadModel(t, mode)
		call := m.CallAt(find(t, m, function(t, m, "main.main"), calls(m, "main.fact")))
		if call.Kind != model.ResolvedCall || len(call.Candidates) != 1 {
			t.Errorf("%s: expected the call to main.fact to be resolved, got %+v", mode, call)
		}
		if mode == config.CallgraphStatic {
			continue
		}
		invoke := m.CallAt(find(t, m, function(t, m, "main.total"), calls(m, "(main.Square).Area")))
		if invoke.Kind != model.ResolvedCall {
			t.Errorf("%s: expected the invoke to be resolved, got %+v", mode, invoke)
		}
	}
}

func TestUnsupportedCallgraph(t *testing.T) {
	cfg := config.NewDefault()
	cfg.CallgraphAnalysis = "andersen"
	_, err := New(ssa.NewProgram(nil, 0), nil, cfg, config.NewLogGroup(cfg))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected an unsupported mode error, got %v", err)
	}
}

func TestInlineGoProgram(t *testing.T) {
	m := loadModel(t, config.CallgraphNone)
	cfg := config.NewDefault()
	cfg.ValidateGraphs = true
	cfg.LogLevel = int(config.ErrLevel)
	state := icfg.NewAnalyzerState(m, cfg, config.NewLogGroup(cfg))
	if err := state.BuildLocalGraphs(); err != nil {
		t.Fatalf("failed to build local graphs: %v", err)
	}
	fact := function(t, m, "main.fact")
	if !funcutil.Contains(state.Dependencies.Successors(fact), model.Procedure(fact)) {
		t.Errorf("main.fact should be recursive")
	}
	if err := state.InlineEntrypoints(); err != nil {
		t.Fatalf("failed to inline: %v", err)
	}
	main := function(t, m, "main.main")
	g, ok := state.ICFGs[main]
	if !ok {
		t.Fatalf("no inlined graph for main.main")
	}
	if state.Stats[main].RecursiveSplices < 1 || state.Stats[main].InlinedCalls < 4 {
		t.Errorf("unexpected stats %+v", state.Stats[main])
	}
	for _, n := range g.CallNodes() {
		for _, c := range g.Callees(n) {
			if m.InModel(c) {
				t.Errorf("%s should have been inlined", c)
			}
		}
	}
	if _, ok := g.ExceptionalSinks["string"]; ok {
		t.Errorf("the panic of main.fail is recovered in main.safe:\n%s", g)
	}
	if _, ok := g.ExceptionalSinks[RuntimeError]; !ok {
		t.Errorf("the call of a function value in main.apply may fail:\n%s", g)
	}
}
