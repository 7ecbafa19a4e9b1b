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
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-icfg/internal/funcutil"
)

// DefaultUncheckedException is the unchecked base exception of programs that do not specify one
const DefaultUncheckedException = "RuntimeException"

// Type is a type of an in-memory program
type Type struct {
	Name       string
	Extends    string
	Implements []string
	Interface  bool
	Library    bool
}

// Proc is a procedure of an in-memory program
type Proc struct {
	Name      string
	Type      string
	Signature string
	Library   bool
	Throws    []string
	body      []*Stmt
}

func (p *Proc) String() string {
	return p.Name
}

// Body returns the statements of the procedure
func (p *Proc) Body() []*Stmt {
	return p.body
}

// Statement returns the statement of the procedure with the id
func (p *Proc) Statement(id string) (*Stmt, bool) {
	for _, s := range p.body {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Stmt is a statement of an in-memory program
type Stmt struct {
	Proc    *Proc
	Index   int
	ID      string
	call    Call
	effects Effects
	succs   []*Stmt
	guards  []Guard
}

func (s *Stmt) String() string {
	return s.Proc.Name + ":" + s.ID
}

// Program is an in-memory program model. A Program is immutable once built and can be shared between goroutines.
type Program struct {
	unchecked string
	types     map[string]*Type
	procs     map[string]*Proc
	order     []*Proc
	methods   map[string]map[string]*Proc // type -> signature -> procedure
}

// NewProgram returns an empty program whose unchecked base exception is unchecked
func NewProgram(unchecked string) *Program {
	return &Program{
		unchecked: unchecked,
		types:     map[string]*Type{},
		procs:     map[string]*Proc{},
		methods:   map[string]map[string]*Proc{},
	}
}

// AddType adds a type to the program
func (p *Program) AddType(t Type) error {
	if t.Name == "" {
		return fmt.Errorf("type without a name")
	}
	if _, ok := p.types[t.Name]; ok {
		return fmt.Errorf("duplicate type %s", t.Name)
	}
	tc := t
	p.types[t.Name] = &tc
	return nil
}

// AddProcedure declares a procedure without a body. The type defaults to the part of the name before the last
// dot, and the signature to the part after it.
func (p *Program) AddProcedure(name, typ, signature string, library bool, throws ...string) (*Proc, error) {
	if name == "" {
		return nil, fmt.Errorf("procedure without a name")
	}
	if _, ok := p.procs[name]; ok {
		return nil, fmt.Errorf("duplicate procedure %s", name)
	}
	qualifier, sig := splitName(name)
	if typ == "" {
		typ = qualifier
	}
	if signature == "" {
		signature = sig
	}
	proc := &Proc{
		Name:      name,
		Type:      typ,
		Signature: signature,
		Library:   library,
		Throws:    throws,
	}
	p.procs[name] = proc
	p.order = append(p.order, proc)
	if p.methods[typ] == nil {
		p.methods[typ] = map[string]*Proc{}
	}
	if _, ok := p.methods[typ][signature]; !ok {
		p.methods[typ][signature] = proc
	}
	return proc, nil
}

// Procedure returns the procedure with the name
func (p *Program) Procedure(name string) (*Proc, bool) {
	proc, ok := p.procs[name]
	return proc, ok
}

// procedureOrLibrary returns the procedure with the name, declaring it as a library procedure if it does not exist
func (p *Program) procedureOrLibrary(name string) *Proc {
	if proc, ok := p.procs[name]; ok {
		return proc
	}
	proc, _ := p.AddProcedure(name, "", "", true)
	return proc
}

func splitName(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// *************** Model implementation **********************

// Procedures returns the procedures of the program in declaration order
func (p *Program) Procedures() []Procedure {
	return funcutil.Map(p.order, func(x *Proc) Procedure { return x })
}

// Statements returns the statements of a procedure of the program
func (p *Program) Statements(proc Procedure) []Statement {
	pr, ok := proc.(*Proc)
	if !ok {
		return nil
	}
	return funcutil.Map(pr.body, func(s *Stmt) Statement { return s })
}

// Successors returns the successors of a statement, including the handlers of the guards enclosing it
func (p *Program) Successors(s Statement) []Statement {
	st, ok := s.(*Stmt)
	if !ok {
		return nil
	}
	return funcutil.Map(st.succs, func(x *Stmt) Statement { return x })
}

// Guards returns the guards enclosing the statement
func (p *Program) Guards(s Statement) []Guard {
	if st, ok := s.(*Stmt); ok {
		return st.guards
	}
	return nil
}

// Effects returns the control flow effects of the statement
func (p *Program) Effects(s Statement) Effects {
	if st, ok := s.(*Stmt); ok {
		return st.effects
	}
	return Effects{}
}

// CallAt returns the call of the statement
func (p *Program) CallAt(s Statement) Call {
	if st, ok := s.(*Stmt); ok {
		return st.call
	}
	return Call{Kind: NoCall}
}

// DeclaredExceptions returns the exceptions declared by the procedure
func (p *Program) DeclaredExceptions(proc Procedure) []string {
	if pr, ok := proc.(*Proc); ok {
		return pr.Throws
	}
	return nil
}

// HasBody returns true if the procedure has at least one statement
func (p *Program) HasBody(proc Procedure) bool {
	pr, ok := proc.(*Proc)
	return ok && len(pr.body) > 0
}

// InModel returns true if the procedure has a body and is not a library procedure
func (p *Program) InModel(proc Procedure) bool {
	return p.HasBody(proc) && !p.IsLibrary(proc)
}

// IsLibrary returns true if the procedure or its declaring type is marked as library
func (p *Program) IsLibrary(proc Procedure) bool {
	pr, ok := proc.(*Proc)
	if !ok {
		return false
	}
	if pr.Library {
		return true
	}
	t, ok := p.types[pr.Type]
	return ok && t.Library
}

// Qualifier returns the declaring type of the procedure
func (p *Program) Qualifier(proc Procedure) string {
	if pr, ok := proc.(*Proc); ok {
		return pr.Type
	}
	return ""
}

// UncheckedException returns the unchecked base exception of the program
func (p *Program) UncheckedException() string {
	return p.unchecked
}

// *************** Hierarchy implementation **********************

// IsInterface returns true if the type is declared as an interface
func (p *Program) IsInterface(typ string) bool {
	t, ok := p.types[typ]
	return ok && t.Interface
}

// supertypes returns the direct supertypes of typ
func (p *Program) supertypes(typ string) []string {
	t, ok := p.types[typ]
	if !ok {
		return nil
	}
	var supers []string
	if t.Extends != "" {
		supers = append(supers, t.Extends)
	}
	return append(supers, t.Implements...)
}

// IsSubtype returns true if sub is super, or if super is reachable from sub in the supertype relation
func (p *Program) IsSubtype(sub string, super string) bool {
	visited := map[string]bool{}
	queue := []string{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == super {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, p.supertypes(cur)...)
	}
	return false
}

// SubtypesOf returns the strict subtypes of typ, in name order
func (p *Program) SubtypesOf(typ string) []string {
	var subs []string
	for name := range p.types {
		if name != typ && p.IsSubtype(name, typ) {
			subs = append(subs, name)
		}
	}
	sort.Strings(subs)
	return subs
}

// ImplementersOf returns the non-interface strict subtypes of typ, in name order
func (p *Program) ImplementersOf(typ string) []string {
	return funcutil.Filter(p.SubtypesOf(typ), func(t string) bool { return !p.IsInterface(t) })
}

// DeclaredMethod returns the procedure declared in typ with the signature
func (p *Program) DeclaredMethod(typ string, signature string) (Procedure, bool) {
	proc, ok := p.methods[typ][signature]
	if !ok {
		return nil, false
	}
	return proc, true
}
