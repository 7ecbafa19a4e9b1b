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
	"os"
	"strconv"

	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// Description is the YAML description of a program.
//
// Example:
//
//	unchecked-exception: RuntimeException
//	types:
//	  - name: IOException
//	    extends: Exception
//	procedures:
//	  - name: A.main
//	    body:
//	      - call: B.run
//	      - invoke: {type: I, signature: run}
//	      - return: true
//	    guards:
//	      - {exception: IOException, from: 0, to: 1, handler: 2}
type Description struct {
	// UncheckedException is the unchecked base exception. Defaults to DefaultUncheckedException when absent;
	// an empty string means the program has no unchecked exception.
	UncheckedException *string `yaml:"unchecked-exception"`

	Types []TypeDesc `yaml:"types"`

	Procedures []ProcedureDesc `yaml:"procedures"`
}

// TypeDesc describes a type
type TypeDesc struct {
	Name       string   `yaml:"name"`
	Extends    string   `yaml:"extends"`
	Implements []string `yaml:"implements"`
	Interface  bool     `yaml:"interface"`
	Library    bool     `yaml:"library"`
}

// ProcedureDesc describes a procedure. A procedure without a body is a declaration only.
type ProcedureDesc struct {
	Name      string          `yaml:"name"`
	Type      string          `yaml:"type"`
	Signature string          `yaml:"signature"`
	Library   bool            `yaml:"library"`
	Throws    []string        `yaml:"throws"`
	Body      []StatementDesc `yaml:"body"`
	Guards    []GuardDesc     `yaml:"guards"`
}

// StatementDesc describes a statement. At most one of Call, Invoke, Dynamic and Candidates can be set.
// When Next is empty, the successor of a statement that does not return or throw is the next statement of the body.
type StatementDesc struct {
	// ID identifies the statement in its procedure. Defaults to the index of the statement.
	ID string `yaml:"id"`

	// Call is the name of the target of a static call
	Call string `yaml:"call"`

	// Invoke is a dispatched call
	Invoke *InvokeDesc `yaml:"invoke"`

	// Dynamic is the name of the target of a call that the program cannot resolve
	Dynamic string `yaml:"dynamic"`

	// Candidates are the names of the pre-resolved targets of a call
	Candidates []string `yaml:"candidates"`

	Return bool     `yaml:"return"`
	Throw  string   `yaml:"throw"`
	Faults []string `yaml:"faults"`
	Next   []string `yaml:"next"`
}

// InvokeDesc describes a dispatched call on a receiver of static type Type. Callee is the statically bound
// procedure; it defaults to the method declared by Type with the Signature.
type InvokeDesc struct {
	Type      string `yaml:"type"`
	Signature string `yaml:"signature"`
	Callee    string `yaml:"callee"`
}

// GuardDesc describes an exception handler: the statements from From (included) to To (excluded) are guarded,
// and Handler is the statement the control flows to when an exception is caught. From, To and Handler are statement
// ids; To can be omitted to guard up to the end of the body.
type GuardDesc struct {
	Exception string `yaml:"exception"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Handler   string `yaml:"handler"`
}

// Load reads a program description from a YAML file and builds the program
func Load(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program description: %w", err)
	}
	return Parse(filename, b)
}

// Parse parses the content of a YAML program description and builds the program. The name is used in errors.
func Parse(name string, content []byte) (*Program, error) {
	var desc Description
	if err := yaml.Unmarshal(content, &desc); err != nil {
		return nil, fmt.Errorf("could not unmarshal program description %s: %w", name, err)
	}
	p, err := Build(desc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// Build builds the program described by desc. All types and procedures are declared before the bodies are built,
// so statements can refer to procedures declared later. Callees that are not declared are added as library
// procedures without a body.
func Build(desc Description) (*Program, error) {
	unchecked := DefaultUncheckedException
	if desc.UncheckedException != nil {
		unchecked = *desc.UncheckedException
	}
	p := NewProgram(unchecked)
	for _, t := range desc.Types {
		err := p.AddType(Type{
			Name:       t.Name,
			Extends:    t.Extends,
			Implements: t.Implements,
			Interface:  t.Interface,
			Library:    t.Library,
		})
		if err != nil {
			return nil, err
		}
	}
	procs := make([]*Proc, len(desc.Procedures))
	for i, pd := range desc.Procedures {
		proc, err := p.AddProcedure(pd.Name, pd.Type, pd.Signature, pd.Library, pd.Throws...)
		if err != nil {
			return nil, err
		}
		procs[i] = proc
	}
	for i, pd := range desc.Procedures {
		if err := p.buildBody(procs[i], pd); err != nil {
			return nil, fmt.Errorf("in procedure %s: %w", pd.Name, err)
		}
	}
	return p, nil
}

func (p *Program) buildBody(proc *Proc, pd ProcedureDesc) error {
	ids := map[string]*Stmt{}
	for i, sd := range pd.Body {
		id := sd.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		if _, ok := ids[id]; ok {
			return fmt.Errorf("duplicate statement id %s", id)
		}
		s := &Stmt{Proc: proc, Index: i, ID: id}
		call, err := p.buildCall(sd)
		if err != nil {
			return fmt.Errorf("statement %s: %w", id, err)
		}
		s.call = call
		s.effects = Effects{Returns: sd.Return, Throws: sd.Throw, Faults: sd.Faults}
		ids[id] = s
		proc.body = append(proc.body, s)
	}

	for i, sd := range pd.Body {
		s := proc.body[i]
		if len(sd.Next) > 0 {
			for _, next := range sd.Next {
				succ, ok := ids[next]
				if !ok {
					return fmt.Errorf("statement %s: unknown successor %s", s.ID, next)
				}
				s.succs = append(s.succs, succ)
			}
		} else if !sd.Return && sd.Throw == "" && i+1 < len(proc.body) {
			s.succs = []*Stmt{proc.body[i+1]}
		}
	}

	for _, gd := range pd.Guards {
		from, ok := ids[gd.From]
		if !ok {
			return fmt.Errorf("guard %s: unknown statement %s", gd.Exception, gd.From)
		}
		end := len(proc.body)
		if gd.To != "" {
			to, ok := ids[gd.To]
			if !ok {
				return fmt.Errorf("guard %s: unknown statement %s", gd.Exception, gd.To)
			}
			end = to.Index
		}
		if end < from.Index {
			return fmt.Errorf("guard %s: range %s..%s is empty or reversed", gd.Exception, gd.From, gd.To)
		}
		handler, ok := ids[gd.Handler]
		if !ok {
			return fmt.Errorf("guard %s: unknown handler %s", gd.Exception, gd.Handler)
		}
		guard := Guard{Exception: gd.Exception, Begin: from.Index, End: end}
		for _, s := range proc.body[from.Index:end] {
			s.guards = append(s.guards, guard)
			if !funcutil.Contains(s.succs, handler) {
				s.succs = append(s.succs, handler)
			}
		}
	}
	return nil
}

func (p *Program) buildCall(sd StatementDesc) (Call, error) {
	kinds := 0
	for _, set := range []bool{sd.Call != "", sd.Invoke != nil, sd.Dynamic != "", len(sd.Candidates) > 0} {
		if set {
			kinds++
		}
	}
	if kinds > 1 {
		return Call{}, fmt.Errorf("more than one kind of call")
	}
	switch {
	case sd.Call != "":
		return Call{Kind: StaticCall, Callee: p.procedureOrLibrary(sd.Call)}, nil
	case sd.Invoke != nil:
		if sd.Invoke.Type == "" || sd.Invoke.Signature == "" {
			return Call{}, fmt.Errorf("invoke needs a type and a signature")
		}
		callee := sd.Invoke.Callee
		if callee == "" {
			if m, ok := p.DeclaredMethod(sd.Invoke.Type, sd.Invoke.Signature); ok {
				callee = m.String()
			} else {
				callee = sd.Invoke.Type + "." + sd.Invoke.Signature
			}
		}
		return Call{
			Kind:          DispatchedCall,
			Callee:        p.procedureOrLibrary(callee),
			DeclaringType: sd.Invoke.Type,
			Signature:     sd.Invoke.Signature,
		}, nil
	case sd.Dynamic != "":
		return Call{Kind: UnmodeledCall, Callee: p.procedureOrLibrary(sd.Dynamic)}, nil
	case len(sd.Candidates) > 0:
		var candidates []Procedure
		for _, c := range sd.Candidates {
			candidates = append(candidates, p.procedureOrLibrary(c))
		}
		return Call{Kind: ResolvedCall, Candidates: candidates}, nil
	default:
		return Call{Kind: NoCall}, nil
	}
}
