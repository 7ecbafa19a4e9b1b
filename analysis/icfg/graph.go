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
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"github.com/awslabs/ar-go-icfg/internal/graphutil"
)

// Node labels of the source and sink nodes
const (
	SourceLabel = "source"
	SinkLabel   = "sink"
)

// Graph is a control-flow graph at the granularity of call sites. The local graph of a procedure is built by the
// LocalFlowGraphBuilder; the inlined graph of an entry point is built by the WholeProgramInliner from a duplicate of
// the entry's local graph.
//
// A graph has a Source node without predecessors, an optional Sink node without successors (NoNode when the
// procedure never returns normally), Call nodes with candidate callees, and at most one exceptional sink per
// exception type.
type Graph struct {
	// Procedure is the procedure of the graph (the entry point for inlined graphs)
	Procedure model.Procedure

	// Source is the entry node of the graph
	Source NodeID

	// Sink is the normal exit node of the graph, or NoNode
	Sink NodeID

	// Calls maps the statements of the procedure to their call node
	Calls map[model.Statement]NodeID

	// ExceptionalSinks maps exception types to the sink of the exceptions of that type that are not caught
	ExceptionalSinks map[string]NodeID

	arena *Arena

	// callNodes are the call nodes of the graph, in creation order
	callNodes []NodeID
}

func newGraph(procedure model.Procedure, arena *Arena) *Graph {
	return &Graph{
		Procedure:        procedure,
		Source:           arena.newNode(SourceLabel),
		Sink:             arena.newNode(SinkLabel),
		Calls:            map[model.Statement]NodeID{},
		ExceptionalSinks: map[string]NodeID{},
		arena:            arena,
	}
}

// Arena returns the arena that stores the nodes of the graph
func (g *Graph) Arena() *Arena {
	return g.arena
}

// Successors returns the successors of n
func (g *Graph) Successors(n NodeID) []NodeID {
	return g.arena.Successors(n)
}

// Predecessors returns the predecessors of n
func (g *Graph) Predecessors(n NodeID) []NodeID {
	return g.arena.Predecessors(n)
}

// Label returns the label of n
func (g *Graph) Label(n NodeID) string {
	return g.arena.Label(n)
}

// Callees returns the candidate callees of n
func (g *Graph) Callees(n NodeID) []model.Procedure {
	return g.arena.Callees(n)
}

// CallNodes returns the call nodes of the graph that have not been removed, in creation order
func (g *Graph) CallNodes() []NodeID {
	return funcutil.Filter(g.callNodes, func(n NodeID) bool { return !g.arena.Removed(n) })
}

// IsExceptionalSink returns true if n is one of the exceptional sinks of the graph
func (g *Graph) IsExceptionalSink(n NodeID) bool {
	s, ok := g.ExceptionalSinks[g.arena.Exception(n)]
	return ok && s == n
}

// Empty returns true if the source of the graph has no successor
func (g *Graph) Empty() bool {
	return len(g.arena.Successors(g.Source)) == 0
}

// Nodes returns the nodes reachable from the source and the sinks of the graph, in breadth-first order
func (g *Graph) Nodes() []NodeID {
	visited := map[NodeID]bool{g.Source: true}
	nodes := []NodeID{g.Source}
	for i := 0; i < len(nodes); i++ {
		for _, s := range g.arena.Successors(nodes[i]) {
			if !visited[s] {
				visited[s] = true
				nodes = append(nodes, s)
			}
		}
	}
	for _, s := range g.sinks() {
		if !visited[s] {
			visited[s] = true
			nodes = append(nodes, s)
		}
	}
	return nodes
}

// sinks returns the sink and the exceptional sinks of the graph, in type order
func (g *Graph) sinks() []NodeID {
	var sinks []NodeID
	if g.Sink != NoNode {
		sinks = append(sinks, g.Sink)
	}
	for _, t := range funcutil.SortedKeys(g.ExceptionalSinks) {
		sinks = append(sinks, g.ExceptionalSinks[t])
	}
	return sinks
}

// exceptionSink returns the exceptional sink for the exception type, creating it if necessary. The boolean is true
// when the sink has been created.
func (g *Graph) exceptionSink(exception string) (NodeID, bool) {
	if s, ok := g.ExceptionalSinks[exception]; ok {
		return s, false
	}
	s := g.arena.newExceptionNode(exception)
	g.ExceptionalSinks[exception] = s
	return s, true
}

// pruneSinks removes the sinks that have no predecessors
func (g *Graph) pruneSinks() {
	if g.Sink != NoNode && len(g.arena.Predecessors(g.Sink)) == 0 {
		g.arena.Detach(g.Sink)
		g.Sink = NoNode
	}
	for t, s := range g.ExceptionalSinks {
		if len(g.arena.Predecessors(s)) == 0 {
			g.arena.Detach(s)
			delete(g.ExceptionalSinks, t)
		}
	}
}

// Duplicate returns a structural copy of the graph in a new arena. The copy shares no node with g.
func (g *Graph) Duplicate() *Graph {
	return g.duplicateInto(NewArena())
}

// duplicateInto copies the graph into the arena. Every node of g gets a new node in the arena, and every edge
// between nodes of g is remapped through the old to new handle table.
func (g *Graph) duplicateInto(arena *Arena) *Graph {
	nodes := g.Nodes()
	for _, n := range g.callNodes {
		if !g.arena.Removed(n) && !funcutil.Contains(nodes, n) {
			nodes = append(nodes, n)
		}
	}
	remap := make(map[NodeID]NodeID, len(nodes))
	for _, n := range nodes {
		remap[n] = arena.copyNode(g.arena, n)
	}
	for _, n := range nodes {
		for _, s := range g.arena.Successors(n) {
			if m, ok := remap[s]; ok {
				arena.Connect(remap[n], m)
			}
		}
	}

	dup := &Graph{
		Procedure:        g.Procedure,
		Source:           remap[g.Source],
		Sink:             NoNode,
		Calls:            make(map[model.Statement]NodeID, len(g.Calls)),
		ExceptionalSinks: make(map[string]NodeID, len(g.ExceptionalSinks)),
		arena:            arena,
	}
	if g.Sink != NoNode {
		dup.Sink = remap[g.Sink]
	}
	for s, n := range g.Calls {
		if m, ok := remap[n]; ok {
			dup.Calls[s] = m
		}
	}
	for t, n := range g.ExceptionalSinks {
		dup.ExceptionalSinks[t] = remap[n]
	}
	for _, n := range g.callNodes {
		if m, ok := remap[n]; ok {
			dup.callNodes = append(dup.callNodes, m)
		}
	}
	return dup
}

// Validate checks the invariants of the graph: successor and predecessor sets are symmetric, the source has no
// predecessor and the sink has no successor.
func (g *Graph) Validate() error {
	if err := g.arena.Validate(); err != nil {
		return fmt.Errorf("graph of %s: %w", g.Procedure, err)
	}
	if preds := g.arena.Predecessors(g.Source); len(preds) > 0 {
		return fmt.Errorf("graph of %s: source has %d predecessors", g.Procedure, len(preds))
	}
	for _, s := range g.sinks() {
		if succs := g.arena.Successors(s); len(succs) > 0 {
			return fmt.Errorf("graph of %s: %s has %d successors", g.Procedure, g.arena.Label(s), len(succs))
		}
	}
	return nil
}

// CGraph returns a snapshot of the graph that can be used with the graph libraries and rendered
func (g *Graph) CGraph() graphutil.CGraph {
	nodes := g.Nodes()
	cnodes := make([]graphutil.CNode, 0, len(nodes))
	for _, n := range nodes {
		cnodes = append(cnodes, graphutil.CNode{
			Id:    int64(n),
			Name:  g.arena.UID(n),
			Label: g.arena.Label(n),
			Shape: g.shape(n),
		})
	}
	cg := graphutil.NewCGraph(cnodes)
	for _, n := range nodes {
		for _, s := range g.arena.Successors(n) {
			cg.AddEdge(int64(n), int64(s))
		}
	}
	return cg
}

func (g *Graph) shape(n NodeID) string {
	switch {
	case n == g.Source:
		return "Mdiamond"
	case n == g.Sink:
		return "Msquare"
	case g.arena.Exception(n) != "":
		return "octagon"
	default:
		return "box"
	}
}

// String returns a description of the graph listing the edges by label, one per line, in sorted order
func (g *Graph) String() string {
	var edges []string
	for _, n := range g.Nodes() {
		for _, s := range g.arena.Successors(n) {
			edges = append(edges, g.arena.Label(n)+" -> "+g.arena.Label(s))
		}
	}
	sort.Strings(edges)
	return fmt.Sprintf("graph %s {\n  %s\n}", g.Procedure, strings.Join(edges, "\n  "))
}
