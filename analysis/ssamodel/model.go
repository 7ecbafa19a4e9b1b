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

// Package ssamodel implements the program model of the graph construction passes over the SSA form of Go programs.
//
// The procedures are the functions with a body of the application packages and the statements are their SSA
// instructions. Panics play the role of exceptions: a panic throws the dynamic type of its value, calls may raise
// a runtime.Error, and a function whose deferred calls recover is guarded by a handler catching any value that
// transfers control to its recover block.
package ssamodel

import (
	"go/token"
	"go/types"
	"sort"
	"sync"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const (
	// AnyType is the type of the values caught by a recover
	AnyType = "interface{}"

	// RuntimeError is the base type of the panics raised by the runtime
	RuntimeError = "runtime.Error"

	// BoundsFault is raised by out of range indexing and slicing
	BoundsFault = "runtime.boundsError"

	// NilFault is raised by nil pointer dereferences
	NilFault = "runtime.errorString"

	// TypeAssertionFault is raised by failed type assertions without comma-ok
	TypeAssertionFault = "*runtime.TypeAssertionError"
)

var faults = map[string]bool{BoundsFault: true, NilFault: true, TypeAssertionFault: true}

// Model is the program model of a Go SSA program. It is safe for concurrent use.
type Model struct {
	program  *ssa.Program
	packages map[*ssa.Package]bool
	procs    []model.Procedure
	logger   *config.LogGroup

	// sites are the callees of the call sites computed by the call graph analysis, if any
	sites map[ssa.CallInstruction][]*ssa.Function

	mu     sync.Mutex
	bodies map[*ssa.Function]*body
	opaque map[string]*Opaque

	typesOnce sync.Once
	types     map[string]types.Type
	typeNames []string
}

// Opaque is a procedure without body that stands for the unknown target of a call: an interface method without
// implementation or a function value
type Opaque struct {
	name      string
	qualifier string
	library   bool
}

func (o *Opaque) String() string {
	return o.name
}

// body is the statement view of a function
type body struct {
	statements []model.Statement
	index      map[ssa.Instruction]int
	// handler is the first instruction of the recover block when a deferred call recovers
	handler ssa.Instruction
}

// New returns the model of the program where the application packages are pkgs. If the call graph analysis of the
// config is not config.CallgraphNone, the callees of the call sites are the ones of the call graph.
func New(program *ssa.Program, pkgs []*ssa.Package, cfg *config.Config, logger *config.LogGroup) (*Model, error) {
	m := &Model{
		program:  program,
		packages: map[*ssa.Package]bool{},
		logger:   logger,
		bodies:   map[*ssa.Function]*body{},
		opaque:   map[string]*Opaque{},
	}
	pkgs = funcutil.Filter(pkgs, func(p *ssa.Package) bool { return p != nil })
	for _, p := range pkgs {
		m.packages[p] = true
	}

	for f := range ssautil.AllFunctions(program) {
		if f.Pkg != nil && m.packages[f.Pkg] && len(f.Blocks) > 0 {
			m.procs = append(m.procs, f)
		}
	}
	funcutil.SortByString(m.procs)

	cg, err := ComputeCallgraph(cfg.CallgraphAnalysis, program, ssautil.MainPackages(pkgs), Roots(pkgs))
	if err != nil {
		return nil, err
	}
	if cg != nil {
		m.sites = callSites(cg)
		logger.Debugf("Call graph (%s) resolves %d call sites", cfg.CallgraphAnalysis, len(m.sites))
	}
	return m, nil
}

// Procedures returns the functions with a body of the application packages, sorted by name
func (m *Model) Procedures() []model.Procedure {
	return m.procs
}

func (m *Model) body(f *ssa.Function) *body {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bodies[f]; ok {
		return b
	}
	b := &body{index: map[ssa.Instruction]int{}}
	// the recover block comes last so that the guarded statements form a prefix
	for _, block := range append(funcutil.Filter(f.Blocks, func(x *ssa.BasicBlock) bool { return x != f.Recover }),
		f.Recover) {
		if block == nil {
			continue
		}
		for _, instr := range block.Instrs {
			b.index[instr] = len(b.statements)
			b.statements = append(b.statements, instr)
		}
	}
	if f.Recover != nil && len(f.Recover.Instrs) > 0 && recovers(f) {
		b.handler = f.Recover.Instrs[0]
	}
	m.bodies[f] = b
	return b
}

// recovers returns true if a function deferred by f calls recover
func recovers(f *ssa.Function) bool {
	for _, block := range f.Blocks {
		for _, instr := range block.Instrs {
			d, ok := instr.(*ssa.Defer)
			if !ok {
				continue
			}
			callee := d.Call.StaticCallee()
			if callee == nil {
				continue
			}
			for _, b := range callee.Blocks {
				for _, i := range b.Instrs {
					if c, ok := i.(*ssa.Call); ok {
						if builtin, ok := c.Call.Value.(*ssa.Builtin); ok && builtin.Name() == "recover" {
							return true
						}
					}
				}
			}
		}
	}
	return false
}

func instruction(s model.Statement) (ssa.Instruction, *ssa.Function) {
	instr, ok := s.(ssa.Instruction)
	if !ok || instr.Block() == nil {
		return nil, nil
	}
	return instr, instr.Parent()
}

// Statements returns the instructions of the function, block by block with the recover block last
func (m *Model) Statements(p model.Procedure) []model.Statement {
	f, ok := p.(*ssa.Function)
	if !ok || len(f.Blocks) == 0 {
		return nil
	}
	return m.body(f).statements
}

// Successors returns the next instruction in the block or the first instructions of the successor blocks, and the
// recover block for the guarded instructions
func (m *Model) Successors(s model.Statement) []model.Statement {
	instr, f := instruction(s)
	if instr == nil {
		return nil
	}
	b := m.body(f)
	var succs []model.Statement
	block := instr.Block()
	if i := b.index[instr]; block.Instrs[len(block.Instrs)-1] != instr {
		succs = append(succs, b.statements[i+1])
	} else {
		for _, next := range block.Succs {
			if len(next.Instrs) > 0 {
				succs = append(succs, next.Instrs[0])
			}
		}
	}
	if b.handler != nil && block != f.Recover && !funcutil.Contains(succs, model.Statement(b.handler)) {
		succs = append(succs, b.handler)
	}
	return succs
}

// Guards returns the guard of the statements of a function that recovers, which catches any value
func (m *Model) Guards(s model.Statement) []model.Guard {
	instr, f := instruction(s)
	if instr == nil {
		return nil
	}
	b := m.body(f)
	if b.handler == nil || instr.Block() == f.Recover {
		return nil
	}
	return []model.Guard{{Exception: AnyType, Begin: 0, End: b.index[b.handler]}}
}

// Effects returns the return and panic effects of the instruction, and the runtime faults it may raise
func (m *Model) Effects(s model.Statement) model.Effects {
	var e model.Effects
	instr, _ := instruction(s)
	switch i := instr.(type) {
	case *ssa.Return:
		e.Returns = true
	case *ssa.Panic:
		e.Throws = panicType(i.X)
	case *ssa.IndexAddr, *ssa.Index, *ssa.Slice:
		e.Faults = []string{BoundsFault}
	case *ssa.Lookup:
		if _, isMap := i.X.Type().Underlying().(*types.Map); !isMap {
			e.Faults = []string{BoundsFault}
		}
	case *ssa.FieldAddr:
		e.Faults = []string{NilFault}
	case *ssa.UnOp:
		if i.Op == token.MUL {
			e.Faults = []string{NilFault}
		}
	case *ssa.TypeAssert:
		if !i.CommaOk {
			e.Faults = []string{TypeAssertionFault}
		}
	}
	return e
}

// panicType returns the dynamic type of the value of a panic when it is known, its static type otherwise
func panicType(v ssa.Value) string {
	if mi, ok := v.(*ssa.MakeInterface); ok {
		return mi.X.Type().String()
	}
	return v.Type().String()
}

// CallAt returns the callees of a call or defer instruction. Call sites resolved by the call graph are resolved
// calls, invokes are resolved with the method implementations of the runtime types, and calls of function values
// are unmodeled.
func (m *Model) CallAt(s model.Statement) model.Call {
	instr, _ := instruction(s)
	var common *ssa.CallCommon
	switch i := instr.(type) {
	case *ssa.Call:
		common = i.Common()
	case *ssa.Defer:
		common = i.Common()
	default:
		return model.Call{Kind: model.NoCall}
	}
	if _, ok := common.Value.(*ssa.Builtin); ok {
		return model.Call{Kind: model.NoCall}
	}
	if callees := methods(m.sites[instr.(ssa.CallInstruction)]); len(callees) > 0 {
		return model.Call{Kind: model.ResolvedCall, Candidates: toProcedures(callees)}
	}
	if common.IsInvoke() {
		return m.invoke(common)
	}
	if f := common.StaticCallee(); f != nil {
		return model.Call{Kind: model.StaticCall, Callee: f}
	}
	return model.Call{
		Kind:   model.UnmodeledCall,
		Callee: m.opaqueProcedure(common.Value.Type().String(), "", true),
	}
}

func (m *Model) invoke(common *ssa.CallCommon) model.Call {
	iface := common.Value.Type()
	name := common.Method.Name()
	var callees []*ssa.Function
	if it, ok := iface.Underlying().(*types.Interface); ok {
		for _, t := range m.typeIndex() {
			if types.IsInterface(t) || !types.Implements(t, it) {
				continue
			}
			if f := m.method(t, common.Method.Pkg(), name); f != nil {
				callees = append(callees, f)
			}
		}
	}
	if callees = methods(callees); len(callees) > 0 {
		return model.Call{
			Kind:          model.ResolvedCall,
			DeclaringType: iface.String(),
			Signature:     name,
			Candidates:    toProcedures(callees),
		}
	}
	qualifier := ""
	library := true
	if named, ok := iface.(*types.Named); ok && named.Obj().Pkg() != nil {
		qualifier = named.Obj().Pkg().Path()
		library = m.program.ImportedPackage(qualifier) == nil ||
			!m.packages[m.program.ImportedPackage(qualifier)]
	}
	return model.Call{
		Kind:          model.UnmodeledCall,
		Callee:        m.opaqueProcedure(iface.String()+"."+name, qualifier, library),
		DeclaringType: iface.String(),
		Signature:     name,
	}
}

// methods returns the functions without the synthetic wrappers when there are other functions, sorted by name and
// without duplicates
func methods(funcs []*ssa.Function) []*ssa.Function {
	var res []*ssa.Function
	for _, f := range funcs {
		if f.Synthetic == "" && !funcutil.Contains(res, f) {
			res = append(res, f)
		}
	}
	if len(res) == 0 {
		for _, f := range funcs {
			if !funcutil.Contains(res, f) {
				res = append(res, f)
			}
		}
	}
	funcutil.SortByString(res)
	return res
}

func toProcedures(funcs []*ssa.Function) []model.Procedure {
	return funcutil.Map(funcs, func(f *ssa.Function) model.Procedure { return f })
}

// method returns the function implementing the method name of t, or nil
func (m *Model) method(t types.Type, pkg *types.Package, name string) *ssa.Function {
	sel := m.program.MethodSets.MethodSet(t).Lookup(pkg, name)
	if sel == nil {
		return nil
	}
	return m.program.MethodValue(sel)
}

func (m *Model) opaqueProcedure(name, qualifier string, library bool) *Opaque {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.opaque[name]; ok {
		return o
	}
	o := &Opaque{name: name, qualifier: qualifier, library: library}
	m.opaque[name] = o
	return o
}

// DeclaredExceptions returns nil: Go functions do not declare the panics they may raise
func (m *Model) DeclaredExceptions(model.Procedure) []string {
	return nil
}

// HasBody returns true for the functions with SSA blocks
func (m *Model) HasBody(p model.Procedure) bool {
	f, ok := p.(*ssa.Function)
	return ok && len(f.Blocks) > 0
}

// InModel returns true for the functions with a body of the application packages
func (m *Model) InModel(p model.Procedure) bool {
	return m.HasBody(p) && !m.IsLibrary(p)
}

// IsLibrary returns true if the procedure is not declared by an application package
func (m *Model) IsLibrary(p model.Procedure) bool {
	switch x := p.(type) {
	case *ssa.Function:
		return x.Pkg == nil || !m.packages[x.Pkg]
	case *Opaque:
		return x.library
	default:
		return true
	}
}

// Qualifier returns the path of the package of the procedure
func (m *Model) Qualifier(p model.Procedure) string {
	switch x := p.(type) {
	case *ssa.Function:
		if x.Pkg != nil {
			return x.Pkg.Pkg.Path()
		}
		if x.Object() != nil && x.Object().Pkg() != nil {
			return x.Object().Pkg().Path()
		}
		return ""
	case *Opaque:
		return x.qualifier
	default:
		return ""
	}
}

// UncheckedException returns RuntimeError
func (m *Model) UncheckedException() string {
	return RuntimeError
}

// typeIndex returns the runtime types and the named types of the application packages, by name
func (m *Model) typeIndex() map[string]types.Type {
	m.typesOnce.Do(func() {
		m.types = map[string]types.Type{}
		for _, t := range m.program.RuntimeTypes() {
			m.types[t.String()] = t
		}
		for pkg := range m.packages {
			for _, mem := range pkg.Members {
				if t, ok := mem.(*ssa.Type); ok {
					if named, ok := t.Type().(*types.Named); ok && named.TypeParams().Len() > 0 {
						continue
					}
					ptr := types.NewPointer(t.Type())
					m.types[t.Type().String()] = t.Type()
					m.types[ptr.String()] = ptr
				}
			}
		}
		for name := range m.types {
			m.typeNames = append(m.typeNames, name)
		}
		sort.Strings(m.typeNames)
	})
	return m.types
}

func (m *Model) lookupType(name string) (types.Type, bool) {
	if t, ok := m.typeIndex()[name]; ok {
		return t, true
	}
	if name == AnyType {
		return types.NewInterfaceType(nil, nil), true
	}
	if obj, ok := types.Universe.Lookup(name).(*types.TypeName); ok {
		return obj.Type(), true
	}
	return nil, false
}

// IsInterface returns true if typ is an interface type
func (m *Model) IsInterface(typ string) bool {
	t, ok := m.lookupType(typ)
	return ok && types.IsInterface(t)
}

// SubtypesOf returns the types that implement the interface typ, other than typ itself, sorted by name. Types that
// are not interfaces have no subtypes.
func (m *Model) SubtypesOf(typ string) []string {
	t, ok := m.lookupType(typ)
	if !ok {
		return nil
	}
	it, ok := t.Underlying().(*types.Interface)
	if !ok {
		return nil
	}
	index := m.typeIndex()
	var res []string
	for _, name := range m.typeNames {
		if name != typ && types.Implements(index[name], it) {
			res = append(res, name)
		}
	}
	return res
}

// ImplementersOf returns the concrete types that implement the interface typ, sorted by name
func (m *Model) ImplementersOf(typ string) []string {
	return funcutil.Filter(m.SubtypesOf(typ), func(t string) bool { return !m.IsInterface(t) })
}

// DeclaredMethod returns the method of the concrete type typ with the name signature, when it is not a synthetic
// wrapper
func (m *Model) DeclaredMethod(typ string, signature string) (model.Procedure, bool) {
	t, ok := m.lookupType(typ)
	if !ok || types.IsInterface(t) {
		return nil, false
	}
	set := m.program.MethodSets.MethodSet(t)
	for i := 0; i < set.Len(); i++ {
		sel := set.At(i)
		if sel.Obj().Name() != signature {
			continue
		}
		if f := m.program.MethodValue(sel); f != nil && f.Synthetic == "" {
			return f, true
		}
	}
	return nil, false
}

// IsSubtype returns true if sub is super, super is an interface sub implements, or sub is a runtime fault and super
// is one of the interfaces of runtime errors
func (m *Model) IsSubtype(sub string, super string) bool {
	if sub == super || super == AnyType || super == "any" {
		return true
	}
	if (faults[sub] || sub == RuntimeError) && (super == RuntimeError || super == "error") {
		return true
	}
	st, ok := m.lookupType(sub)
	if !ok {
		return false
	}
	sp, ok := m.lookupType(super)
	if !ok {
		return false
	}
	it, ok := sp.Underlying().(*types.Interface)
	return ok && types.Implements(st, it)
}
