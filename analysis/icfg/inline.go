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
	"strings"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"github.com/awslabs/ar-go-icfg/internal/graphutil"
)

// InlineStats counts the operations performed while inlining one entry point
type InlineStats struct {
	// InlinedCalls is the number of callee graphs spliced into a call site
	InlinedCalls int

	// RecursiveSplices is the number of calls to a procedure on the call stack that have been spliced back into
	// the graph of that procedure
	RecursiveSplices int

	// RemovedCalls is the number of call nodes removed because all their callees have been inlined
	RemovedCalls int

	// CreatedSinks is the number of exceptional sinks created in callers
	CreatedSinks int
}

// Add adds the counts of other to s
func (s *InlineStats) Add(other InlineStats) {
	s.InlinedCalls += other.InlinedCalls
	s.RecursiveSplices += other.RecursiveSplices
	s.RemovedCalls += other.RemovedCalls
	s.CreatedSinks += other.CreatedSinks
}

// WholeProgramInliner inlines the local graphs of the callees into the graphs of their callers, starting from an
// entry point. The local graphs are never modified: every inlining works on duplicates.
type WholeProgramInliner struct {
	model  model.Model
	config *config.Config
	logger *config.LogGroup
	locals map[model.Procedure]*Graph
}

// NewWholeProgramInliner returns an inliner of the local graphs
func NewWholeProgramInliner(m model.Model, locals map[model.Procedure]*Graph, cfg *config.Config,
	logger *config.LogGroup) *WholeProgramInliner {
	return &WholeProgramInliner{model: m, config: cfg, logger: logger, locals: locals}
}

// frame is an element of the call stack of the inlining: the procedure being inlined and its graph in progress
type frame struct {
	procedure model.Procedure
	graph     *Graph
}

// inlining is the state of the inlining of one entry point. All the graphs of an inlining share the same arena.
type inlining struct {
	*WholeProgramInliner
	arena *Arena
	stats InlineStats
}

// Inline returns the inlined graph of the entry point, or nil if the entry has no local graph.
// Calls to procedures of the model are replaced by the graph of the callee, recursively. A call to a procedure
// that is already on the call stack is spliced back to the start of the graph of that procedure instead, so every
// cycle of recursive calls is unrolled once. Call nodes with candidates that are not in the model stay in the graph.
// Inline can be called concurrently for different entry points.
func (w *WholeProgramInliner) Inline(entry model.Procedure) (*Graph, InlineStats) {
	if _, ok := w.locals[entry]; !ok {
		return nil, InlineStats{}
	}
	run := &inlining{WholeProgramInliner: w, arena: NewArena()}
	stack := graphutil.NewTree(&frame{procedure: entry})
	g := run.inline(stack)
	if w.logger.LogsTrace() {
		w.logger.Tracef("Inlining tree of %s:\n%s", entry, formatTree(stack, 0))
	}
	return g, run.stats
}

// inline builds the inlined graph of the procedure of the frame. The ancestors of the node of the frame in the
// inlining tree are the call stack.
func (r *inlining) inline(node *graphutil.Tree[*frame]) *Graph {
	fr := node.Label
	fr.graph = r.locals[fr.procedure].duplicateInto(r.arena)
	g := fr.graph
	statements := make(map[NodeID]model.Statement, len(g.Calls))
	for s, n := range g.Calls {
		statements[n] = s
	}
	for _, n := range g.CallNodes() {
		if !r.arena.Removed(n) {
			r.inlineCall(node, n, statements[n])
		}
	}
	g.pruneSinks()
	return g
}

// inlineCall inlines the candidates of the call node n of the graph of the frame that are in the model, and
// removes n when all its candidates have been inlined. s is the statement of the call.
func (r *inlining) inlineCall(node *graphutil.Tree[*frame], n NodeID, s model.Statement) {
	g := node.Label.graph
	a := r.arena
	loops := a.HasEdge(n, n)
	callers := without(a.Predecessors(n), n)
	inlined, recursive := false, false
	var entries, exits []NodeID

	candidates := append([]model.Procedure{}, a.Callees(n)...)
	funcutil.SortByString(candidates)
	for _, c := range candidates {
		if _, ok := r.locals[c]; !ok || !r.model.InModel(c) {
			continue
		}
		a.RemoveCallee(n, c)
		onStack := node.FindAncestor(func(f *frame) bool { return f.procedure == c })
		if onStack != nil {
			// splice into the graph of c that is being built
			a.connectAll(without(a.Predecessors(n), n), a.Successors(onStack.Label.graph.Source))
			r.stats.RecursiveSplices++
			recursive = true
			r.logger.Debugf("Recursive call to %s in %s", c, node.Label.procedure)
			continue
		}
		callee := r.inline(node.AddChild(&frame{procedure: c}))
		e, x := r.splice(g, n, s, callee)
		entries = append(entries, e...)
		exits = append(exits, x...)
		r.stats.InlinedCalls++
		inlined = true
	}

	if len(a.Callees(n)) > 0 {
		return
	}
	if inlined && !recursive {
		// the edges to n have been redirected to the inlined graphs
		for _, p := range append(callers, exits...) {
			a.Disconnect(p, n)
		}
		if loops {
			a.connectAll(exits, entries)
		}
	}
	a.connectAll(without(a.Predecessors(n), n), without(a.Successors(n), n))
	a.Detach(n)
	r.stats.RemovedCalls++
}

// splice connects the graph of a callee of the call node n in place of n. The predecessors of n are connected to
// the entries of the callee, the nodes returning from the callee are connected to the normal successors of n, and
// the exceptional sinks of the callee are merged into the sinks of g. Exceptions caught by a guard of the call
// statement s flow to the normal successors of n, which include the handlers. It returns the entries of the callee
// and the nodes connected to the normal successors of n.
func (r *inlining) splice(g *Graph, n NodeID, s model.Statement, callee *Graph) (entries []NodeID, exits []NodeID) {
	a := r.arena
	next := funcutil.Filter(a.Successors(n), func(x NodeID) bool { return !g.IsExceptionalSink(x) })
	entries = a.Successors(callee.Source)
	a.connectAll(a.Predecessors(n), entries)
	a.Detach(callee.Source)

	if callee.Sink != NoNode {
		exits = append(exits, a.Predecessors(callee.Sink)...)
		a.connectAll(a.Predecessors(callee.Sink), next)
		a.Detach(callee.Sink)
	}

	for _, exception := range funcutil.SortedKeys(callee.ExceptionalSinks) {
		sink := callee.ExceptionalSinks[exception]
		if s != nil && isCaught(r.model, s, exception) {
			exits = append(exits, a.Predecessors(sink)...)
			a.connectAll(a.Predecessors(sink), next)
		} else {
			a.connectAll(a.Predecessors(sink), []NodeID{r.exceptionTarget(g, exception)})
		}
		a.Detach(sink)
	}
	g.callNodes = append(g.callNodes, callee.CallNodes()...)
	// the sinks of an empty callee are entries that have been detached
	entries = funcutil.Filter(entries, func(x NodeID) bool { return !a.Removed(x) })
	return entries, exits
}

// exceptionTarget returns the sink of g the exceptions of the type escaping from an inlined callee flow to: the
// sink of g for that type if it exists, otherwise the sink of g for the most specific supertype, otherwise a new
// sink. Unrelated supertypes are ordered by name.
func (r *inlining) exceptionTarget(g *Graph, exception string) NodeID {
	if s, ok := g.ExceptionalSinks[exception]; ok {
		return s
	}
	if !r.config.ExactExceptionSinks {
		best := ""
		for _, t := range funcutil.SortedKeys(g.ExceptionalSinks) {
			if r.model.IsSubtype(exception, t) && (best == "" || r.model.IsSubtype(t, best)) {
				best = t
			}
		}
		if best != "" {
			return g.ExceptionalSinks[best]
		}
	}
	s, _ := g.exceptionSink(exception)
	r.stats.CreatedSinks++
	return s
}

func without(nodes []NodeID, n NodeID) []NodeID {
	return funcutil.Filter(nodes, func(x NodeID) bool { return x != n })
}

func formatTree(t *graphutil.Tree[*frame], depth int) string {
	s := strings.Repeat("  ", depth) + t.Label.procedure.String() + "\n"
	for _, c := range t.Children {
		s += formatTree(c, depth+1)
	}
	return s
}
