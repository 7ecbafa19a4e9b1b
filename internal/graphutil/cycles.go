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

package graphutil

import (
	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph CGraph, self-loops included.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
// Each cycle is returned as the list of its node ids, starting and ending at its smallest node id. Cycles are
// returned in increasing order of their smallest node.
//
//	cg : the graph with cycles
func FindAllElementaryCycles(cg CGraph) [][]int64 {
	s := &state{cycles: [][]int64{}}
	for i, start := range cg.Keys {
		fg := Subgraph(cg, cg.Keys[i:])
		component := componentOf(fg, start)
		if len(component) < 2 && !fg.Edges[start][start] {
			continue
		}
		s.reset()
		s.circuit(start, start, Subgraph(fg, component))
	}
	return s.cycles
}

// componentOf returns the strongly connected component of g containing node
func componentOf(g CGraph, node int64) []int64 {
	for _, component := range graph.StrongComponents(g) {
		for _, v := range component {
			if int64(v) == node {
				ids := make([]int64, len(component))
				for j, w := range component {
					ids[j] = int64(w)
				}
				return ids
			}
		}
	}
	return nil
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) reset() {
	s.stack = []int64{}
	s.blocked = map[int64]bool{}
	s.blist = map[int64]map[int64]bool{}
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, i int64, g CGraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range sortedSet(g.Edges[v]) {
		if w == i {
			stackCopy := make([]int64, len(s.stack), len(s.stack)+1)
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
