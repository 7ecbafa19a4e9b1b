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

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"github.com/awslabs/ar-go-icfg/internal/graphutil"
	"github.com/yourbasic/graph"
)

// CallDependencyGraph is the "may call" graph between the procedures that have a local graph and their callees in
// the model. It is used to select the entry points of the inlining.
type CallDependencyGraph struct {
	nodes []model.Procedure
	succs map[model.Procedure][]model.Procedure
	preds map[model.Procedure][]model.Procedure
}

// NewCallDependencyGraph builds the dependency graph of the local graphs: there is an edge from p to c when c is
// a candidate callee of a call node of the local graph of p, and c is in the model.
func NewCallDependencyGraph(m model.Model, locals map[model.Procedure]*Graph) *CallDependencyGraph {
	cdg := &CallDependencyGraph{
		succs: map[model.Procedure][]model.Procedure{},
		preds: map[model.Procedure][]model.Procedure{},
	}
	seen := map[model.Procedure]bool{}
	addNode := func(p model.Procedure) {
		if !seen[p] {
			seen[p] = true
			cdg.nodes = append(cdg.nodes, p)
		}
	}
	callers := make([]model.Procedure, 0, len(locals))
	for p := range locals {
		callers = append(callers, p)
	}
	funcutil.SortByString(callers)

	for _, p := range callers {
		addNode(p)
		g := locals[p]
		for _, n := range g.CallNodes() {
			for _, c := range g.Callees(n) {
				if !m.InModel(c) || funcutil.Contains(cdg.succs[p], c) {
					continue
				}
				addNode(c)
				cdg.succs[p] = append(cdg.succs[p], c)
				cdg.preds[c] = append(cdg.preds[c], p)
			}
		}
	}
	funcutil.SortByString(cdg.nodes)
	for _, p := range cdg.nodes {
		funcutil.SortByString(cdg.succs[p])
		funcutil.SortByString(cdg.preds[p])
	}
	return cdg
}

// Nodes returns the procedures of the graph in name order
func (cdg *CallDependencyGraph) Nodes() []model.Procedure {
	return cdg.nodes
}

// Successors returns the procedures p may call
func (cdg *CallDependencyGraph) Successors(p model.Procedure) []model.Procedure {
	return cdg.succs[p]
}

// Predecessors returns the procedures that may call p
func (cdg *CallDependencyGraph) Predecessors(p model.Procedure) []model.Procedure {
	return cdg.preds[p]
}

// Heads returns the procedures without callers
func (cdg *CallDependencyGraph) Heads() []model.Procedure {
	return funcutil.Filter(cdg.nodes, func(p model.Procedure) bool { return len(cdg.preds[p]) == 0 })
}

// Tails returns the procedures that call no procedure of the model
func (cdg *CallDependencyGraph) Tails() []model.Procedure {
	return funcutil.Filter(cdg.nodes, func(p model.Procedure) bool { return len(cdg.succs[p]) == 0 })
}

// RecursiveComponents returns the strongly connected components of the graph that contain a cycle, each sorted
// by name. Callees appear before their callers.
func (cdg *CallDependencyGraph) RecursiveComponents() [][]model.Procedure {
	var res [][]model.Procedure
	for _, scc := range graphutil.StronglyConnectedComponents(cdg.nodes, cdg.Successors) {
		if cdg.isRecursive(scc) {
			funcutil.SortByString(scc)
			res = append(res, scc)
		}
	}
	return res
}

func (cdg *CallDependencyGraph) isRecursive(scc []model.Procedure) bool {
	return len(scc) > 1 || funcutil.Contains(cdg.succs[scc[0]], scc[0])
}

// Entrypoints returns the procedures the inlining starts from: the heads whose name matches the entry point
// filter of the config and, if the config includes the recursive roots, the first procedure of every recursive
// component that has no caller outside the component.
func (cdg *CallDependencyGraph) Entrypoints(cfg *config.Config) []model.Procedure {
	entries := cdg.Heads()
	if cfg.IncludeRecursiveRoots {
		for _, scc := range graphutil.SourceComponents(cdg.nodes, cdg.Successors) {
			if cdg.isRecursive(scc) {
				funcutil.SortByString(scc)
				entries = append(entries, scc[0])
			}
		}
	}
	entries = funcutil.Filter(entries, func(p model.Procedure) bool { return cfg.MatchEntrypoint(p.String()) })
	funcutil.SortByString(entries)
	return entries
}

// Cycles returns the elementary cycles of the graph. Each cycle starts and ends with the same procedure.
func (cdg *CallDependencyGraph) Cycles() [][]model.Procedure {
	var res [][]model.Procedure
	for _, cycle := range graphutil.FindAllElementaryCycles(cdg.CGraph()) {
		res = append(res, funcutil.Map(cycle, func(i int64) model.Procedure { return cdg.nodes[i] }))
	}
	return res
}

// Stats returns the statistics of the graph computed by the graph library
func (cdg *CallDependencyGraph) Stats() graph.Stats {
	return graph.Check(cdg.CGraph())
}

// CGraph returns a snapshot of the graph. The id of a procedure is its index in Nodes().
func (cdg *CallDependencyGraph) CGraph() graphutil.CGraph {
	index := make(map[model.Procedure]int64, len(cdg.nodes))
	cnodes := make([]graphutil.CNode, len(cdg.nodes))
	for i, p := range cdg.nodes {
		index[p] = int64(i)
		shape := "box"
		if len(cdg.preds[p]) == 0 {
			shape = "Mdiamond"
		}
		cnodes[i] = graphutil.CNode{Id: int64(i), Name: fmt.Sprintf("p%d", i), Label: p.String(), Shape: shape}
	}
	cg := graphutil.NewCGraph(cnodes)
	for _, p := range cdg.nodes {
		for _, c := range cdg.succs[p] {
			cg.AddEdge(index[p], index[c])
		}
	}
	return cg
}
