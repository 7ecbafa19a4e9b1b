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
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
)

// CGraph is a snapshot of a directed graph whose nodes are identified by int64 ids, used to work with existing
// graph libraries. It implements the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Directed, and
// its nodes carry the attributes needed by Gonum's DOT encoder.
type CGraph struct {
	// The order of the graph: one more than the largest node id
	order int

	// IDMap maps from node IDs to CNodes
	IDMap map[int64]CNode

	// Keys are all the node IDs, in increasing order
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewCGraph returns a new graph with the given nodes and no edges. Node ids must be non-negative and unique.
func NewCGraph(nodes []CNode) CGraph {
	idmap := make(map[int64]CNode, len(nodes))
	edges := make(map[int64]map[int64]bool, len(nodes))
	keys := make([]int64, 0, len(nodes))
	order := 0
	for _, n := range nodes {
		idmap[n.Id] = n
		edges[n.Id] = map[int64]bool{}
		keys = append(keys, n.Id)
		if int(n.Id)+1 > order {
			order = int(n.Id) + 1
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return CGraph{
		order: order,
		IDMap: idmap,
		Keys:  keys,
		Edges: edges,
	}
}

// AddEdge adds an edge from x to y. Edges whose ends are not nodes of the graph are ignored.
func (c CGraph) AddEdge(x, y int64) {
	if _, ok := c.IDMap[y]; !ok {
		return
	}
	if out, ok := c.Edges[x]; ok {
		out[y] = true
	}
}

// NumEdges returns the number of edges in the graph
func (c CGraph) NumEdges() int {
	n := 0
	for _, out := range c.Edges {
		n += len(out)
	}
	return n
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order and node ids are the same as in origin, meaning that node indices will stay consistent
// across subgraphs.
func Subgraph(original CGraph, include []int64) CGraph {
	idmap := make(map[int64]CNode, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, 0, len(include))

	for _, i := range include {
		if n, ok := original.IDMap[i]; ok {
			keys = append(keys, i)
			idmap[i] = n
		}
	}

	for _, i := range keys {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := idmap[e]; ok {
				edges[i][e] = true
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{
		order: original.Order(),
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the CGraph
func (c CGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CGraph
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for _, w := range sortedSet(c.Edges[int64(v)]) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface. It returns nil if there is no node with that id.
func (c CGraph) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c CGraph) Nodes() graph.Nodes {
	return newNodeSet(c.IDMap, c.Keys)
}

// From returns the set of nodes reachable by an edge from the id
func (c CGraph) From(id int64) graph.Nodes {
	return newNodeSet(c.IDMap, sortedSet(c.Edges[id]))
}

// To returns the set of nodes that have an edge to the id
func (c CGraph) To(id int64) graph.Nodes {
	var keys []int64
	for _, k := range c.Keys {
		if c.Edges[k][id] {
			keys = append(keys, k)
		}
	}
	return newNodeSet(c.IDMap, keys)
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns a boolean indicating whether a directed edge from uid to vid exists
func (c CGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

func sortedSet(s map[int64]bool) []int64 {
	keys := make([]int64, 0, len(s))
	for k, b := range s {
		if b {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// *************** Nodes implementation **********************

// CNode is a node of a CGraph. It implements the graph.Node interface, and the interfaces used by the DOT encoder
// to name the node and set its attributes.
type CNode struct {
	// Id is the id of the node in the graph
	Id int64

	// Name is the unique identifier of the node in the DOT output
	Name string

	// Label is the label displayed for the node
	Label string

	// Shape is the Graphviz shape of the node. Empty means the default shape.
	Shape string
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return n.Id
}

// DOTID returns the identifier of the node in the DOT output
func (n CNode) DOTID() string {
	return n.Name
}

// Attributes returns the DOT attributes of the node
func (n CNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: n.Label}}
	if n.Shape != "" {
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: n.Shape})
	}
	return attrs
}

func (n CNode) String() string {
	return n.Label
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]CNode

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator. The current node is nodes[ids[cur]]
	// invariant: -1 <= cur < len(ids); cur is -1 before the first call to Next
	cur int
}

func newNodeSet(nodes map[int64]CNode, ids []int64) *NodeSet {
	return &NodeSet{nodes: nodes, ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset returns the iterator to its start position
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
