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

package icfg

import (
	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"golang.org/x/tools/container/intsets"
)

// LocalFlowGraphBuilder builds the local graphs of the procedures of a model
type LocalFlowGraphBuilder struct {
	model    model.Model
	config   *config.Config
	logger   *config.LogGroup
	resolver *Resolver
}

// NewLocalFlowGraphBuilder returns a builder for the procedures of the model
func NewLocalFlowGraphBuilder(m model.Model, cfg *config.Config, logger *config.LogGroup) *LocalFlowGraphBuilder {
	return &LocalFlowGraphBuilder{
		model:    m,
		config:   cfg,
		logger:   logger,
		resolver: NewResolver(m, cfg),
	}
}

// UncheckedException returns the unchecked exception used by the builder: the one of the config if it is set,
// otherwise the one of the model
func (b *LocalFlowGraphBuilder) UncheckedException() string {
	if b.config.UncheckedException != "" {
		return b.config.UncheckedException
	}
	return b.model.UncheckedException()
}

// localState is the state of the dataflow analysis of one procedure
type localState struct {
	*LocalFlowGraphBuilder
	graph      *Graph
	statements []model.Statement
	index      map[model.Statement]int
	preds      [][]int
	isHead     []bool
	in         []*intsets.Sparse
	out        []*intsets.Sparse
}

// Build builds the local graph of the procedure. The value at each statement is the set of nodes that may reach
// it: heads receive the source, the nodes flow through statements without calls, and a call statement replaces the
// incoming set by its call node. The analysis iterates until the sets are stable.
func (b *LocalFlowGraphBuilder) Build(p model.Procedure) *Graph {
	st := b.newLocalState(p)
	st.fixpoint()
	st.graph.pruneSinks()
	b.logger.Tracef("Local graph of %s:\n%s\n", p, st.graph)
	return st.graph
}

func (b *LocalFlowGraphBuilder) newLocalState(p model.Procedure) *localState {
	statements := b.model.Statements(p)
	st := &localState{
		LocalFlowGraphBuilder: b,
		graph:                 newGraph(p, NewArena()),
		statements:            statements,
		index:                 make(map[model.Statement]int, len(statements)),
		preds:                 make([][]int, len(statements)),
		isHead:                make([]bool, len(statements)),
		in:                    make([]*intsets.Sparse, len(statements)),
		out:                   make([]*intsets.Sparse, len(statements)),
	}
	for i, s := range statements {
		st.index[s] = i
		st.in[i] = &intsets.Sparse{}
		st.out[i] = &intsets.Sparse{}
	}
	for i, s := range statements {
		for _, succ := range b.model.Successors(s) {
			if j, ok := st.index[succ]; ok {
				st.preds[j] = append(st.preds[j], i)
			}
		}
	}
	for i := range statements {
		st.isHead[i] = i == 0 || len(st.preds[i]) == 0
	}
	return st
}

func (st *localState) fixpoint() {
	worklist := make([]int, 0, len(st.statements))
	queued := make([]bool, len(st.statements))
	for i := range st.statements {
		worklist = append(worklist, i)
		queued[i] = true
	}
	for len(worklist) > 0 {
		i := worklist[0]
		worklist = worklist[1:]
		queued[i] = false

		in := st.in[i]
		in.Clear()
		if st.isHead[i] {
			in.Insert(int(st.graph.Source))
		}
		for _, p := range st.preds[i] {
			in.UnionWith(st.out[p])
		}

		out := st.transfer(i, in)
		if out.Equals(st.out[i]) {
			continue
		}
		st.out[i] = out
		for _, succ := range st.model.Successors(st.statements[i]) {
			if j, ok := st.index[succ]; ok && !queued[j] {
				worklist = append(worklist, j)
				queued[j] = true
			}
		}
	}
}

// transfer computes the outgoing set of the statement at index i from its incoming set, adding the edges of the
// graph on the way
func (st *localState) transfer(i int, in *intsets.Sparse) *intsets.Sparse {
	out := &intsets.Sparse{}
	if in.IsEmpty() {
		return out
	}
	s := st.statements[i]
	frontier := toNodeIDs(in)
	effects := st.model.Effects(s)

	if !st.config.SkipImplicitFaults {
		for _, fault := range effects.Faults {
			st.connectUncaught(s, frontier, fault)
		}
	}

	callees := st.resolver.Resolve(s)
	if len(callees) > 0 {
		n := st.callNode(s, callees)
		st.graph.arena.connectAll(frontier, []NodeID{n})
		for _, exception := range st.exceptionsOf(callees) {
			st.connectUncaught(s, []NodeID{n}, exception)
		}
		frontier = []NodeID{n}
	}

	switch {
	case effects.Returns:
		st.graph.arena.connectAll(frontier, []NodeID{st.graph.Sink})
		return out
	case effects.Throws != "" && !isCaught(st.model, s, effects.Throws):
		st.connectUncaught(s, frontier, effects.Throws)
		return out
	}
	// a caught exception flows to the handlers through the successors of the statement
	for _, n := range frontier {
		out.Insert(int(n))
	}
	return out
}

// callNode returns the call node of the statement, creating it if necessary
func (st *localState) callNode(s model.Statement, callees []model.Procedure) NodeID {
	if n, ok := st.graph.Calls[s]; ok {
		return n
	}
	n := st.graph.arena.newCallNode(callees[0].String(), callees)
	st.graph.Calls[s] = n
	st.graph.callNodes = append(st.graph.callNodes, n)
	return n
}

// exceptionsOf returns the exceptions declared by any of the callees and the unchecked exception, in name order
func (st *localState) exceptionsOf(callees []model.Procedure) []string {
	exceptions := map[string]bool{}
	for _, c := range callees {
		for _, e := range st.model.DeclaredExceptions(c) {
			exceptions[e] = true
		}
	}
	if unchecked := st.UncheckedException(); unchecked != "" {
		exceptions[unchecked] = true
	}
	return funcutil.SortedKeys(exceptions)
}

// connectUncaught connects the nodes to the exceptional sink of the exception, unless a guard of the statement
// catches the exception
func (st *localState) connectUncaught(s model.Statement, nodes []NodeID, exception string) {
	if isCaught(st.model, s, exception) {
		return
	}
	sink, _ := st.graph.exceptionSink(exception)
	st.graph.arena.connectAll(nodes, []NodeID{sink})
}

// isCaught returns true if a guard of the statement catches the exception
func isCaught(m model.Model, s model.Statement, exception string) bool {
	return funcutil.Exists(m.Guards(s), func(g model.Guard) bool {
		return m.IsSubtype(exception, g.Exception)
	})
}
