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

// Package model defines the program model consumed by the graph construction passes, and provides an in-memory
// implementation of it that can be loaded from a YAML description of a program.
//
// A program model exposes the procedures of a program, their statements, the control flow between statements, the
// exception guards that enclose statements, how the call in a statement resolves and the type hierarchy used to
// resolve dispatched calls. Implementations must be safe for concurrent use by multiple goroutines.
package model

// Procedure is a unit of code of the program, treated as one local flow graph when it has a body
type Procedure interface {
	String() string
}

// Statement is a program point of a procedure, containing zero or one call
type Statement interface {
	String() string
}

// CallKind is the kind of outcome of the resolution of a call by the model
type CallKind int

const (
	// NoCall means the statement does not call anything
	NoCall CallKind = iota

	// StaticCall is a call whose target is bound statically: Call.Callee is the only target
	StaticCall

	// DispatchedCall is a call whose target depends on the runtime type of the receiver. Call.Callee is the
	// statically bound procedure, Call.DeclaringType and Call.Signature identify the method in the hierarchy.
	DispatchedCall

	// ResolvedCall is a call whose candidate targets have been computed by the model: Call.Candidates
	ResolvedCall

	// UnmodeledCall is a call whose target cannot be resolved from the program: Call.Callee stands for it
	UnmodeledCall
)

func (k CallKind) String() string {
	switch k {
	case NoCall:
		return "none"
	case StaticCall:
		return "static"
	case DispatchedCall:
		return "dispatched"
	case ResolvedCall:
		return "resolved"
	case UnmodeledCall:
		return "unmodeled"
	default:
		return "unknown"
	}
}

// Call is the outcome of the resolution of the call in a statement
type Call struct {
	Kind          CallKind
	Callee        Procedure
	DeclaringType string
	Signature     string
	Candidates    []Procedure
}

// Guard is an exception handler range enclosing a statement. Statements with index in [Begin, End) of their
// procedure are guarded by the handler, which catches Exception and all its subtypes.
type Guard struct {
	Exception string
	Begin     int
	End       int
}

// Effects are the effects of a statement on the control flow, other than calls
type Effects struct {
	// Returns is true when the statement returns normally from the procedure
	Returns bool

	// Throws is the type of exception the statement throws explicitly, if non-empty
	Throws string

	// Faults are the types of the runtime faults the statement may raise implicitly, without interrupting the
	// normal control flow
	Faults []string
}

// Hierarchy answers the type hierarchy queries used to resolve dispatched calls and to match exceptions with
// handlers
type Hierarchy interface {
	// IsInterface returns true if typ is an interface type
	IsInterface(typ string) bool

	// SubtypesOf returns the strict subtypes of typ, transitively
	SubtypesOf(typ string) []string

	// ImplementersOf returns the concrete types that implement the interface typ, transitively
	ImplementersOf(typ string) []string

	// DeclaredMethod returns the procedure declared by typ with the signature, if there is one
	DeclaredMethod(typ string, signature string) (Procedure, bool)

	// IsSubtype returns true if sub is super or a subtype of super
	IsSubtype(sub string, super string) bool
}

// Model is a program model
type Model interface {
	Hierarchy

	// Procedures returns the procedures to analyze, in a deterministic order
	Procedures() []Procedure

	// Statements returns the statements of the procedure. The first statement is the entry of the procedure.
	Statements(p Procedure) []Statement

	// Successors returns the control-flow successors of a statement, including exceptional successors
	Successors(s Statement) []Statement

	// Guards returns the exception guards enclosing the statement
	Guards(s Statement) []Guard

	// Effects returns the control-flow effects of the statement
	Effects(s Statement) Effects

	// CallAt returns the resolution of the call in the statement
	CallAt(s Statement) Call

	// DeclaredExceptions returns the exception types a procedure declares it may throw
	DeclaredExceptions(p Procedure) []string

	// HasBody returns true if the body of the procedure is known
	HasBody(p Procedure) bool

	// InModel returns true if the procedure can be inlined: it has a body and is part of the analyzed program
	InModel(p Procedure) bool

	// IsLibrary returns true if the procedure belongs to a library of the analyzed program
	IsLibrary(p Procedure) bool

	// Qualifier returns the name of the package or type that declares the procedure
	Qualifier(p Procedure) string

	// UncheckedException returns the base type of the exceptions any call may raise without declaring them.
	// Empty when the program has no such type.
	UncheckedException() string
}
