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

	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/google/uuid"
	"golang.org/x/tools/container/intsets"
)

// NodeID is a handle to a node of an Arena
type NodeID int

// NoNode is the handle of an absent node
const NoNode NodeID = -1

// nodeData is the content of a node. Nodes are never destroyed: a node that is removed from a graph is detached
// from all its neighbors and marked as removed.
type nodeData struct {
	label     string
	uid       string
	callees   []model.Procedure
	exception string
	succs     intsets.Sparse
	preds     intsets.Sparse
	removed   bool
}

// An Arena stores the nodes of one or several graphs. Nodes are addressed by their NodeID in the arena, and the
// adjacency of a node is stored as sets of handles.
//
// All the methods that modify edges maintain the invariant that s is a successor of n iff n is a predecessor of s.
// An Arena is not safe for concurrent modifications, but concurrent reads are safe.
type Arena struct {
	nodes []*nodeData
}

// NewArena returns an empty arena
func NewArena() *Arena {
	return &Arena{}
}

// Len returns the number of nodes ever created in the arena, removed nodes included
func (a *Arena) Len() int {
	return len(a.nodes)
}

func (a *Arena) newNode(label string) NodeID {
	a.nodes = append(a.nodes, &nodeData{label: label, uid: uuid.NewString()})
	return NodeID(len(a.nodes) - 1)
}

func (a *Arena) newCallNode(label string, callees []model.Procedure) NodeID {
	n := a.newNode(label)
	a.nodes[n].callees = append([]model.Procedure{}, callees...)
	return n
}

func (a *Arena) newExceptionNode(exception string) NodeID {
	n := a.newNode(exceptionLabel(exception))
	a.nodes[n].exception = exception
	return n
}

// copyNode adds a copy of the node n of arena b, without its edges. The copy gets a new unique id.
func (a *Arena) copyNode(b *Arena, n NodeID) NodeID {
	d := b.nodes[n]
	m := a.newNode(d.label)
	a.nodes[m].callees = append([]model.Procedure(nil), d.callees...)
	a.nodes[m].exception = d.exception
	return m
}

// Label returns the display label of the node
func (a *Arena) Label(n NodeID) string {
	return a.nodes[n].label
}

// UID returns the unique identifier of the node, for rendering
func (a *Arena) UID(n NodeID) string {
	return a.nodes[n].uid
}

// Callees returns the candidate callees of the node. The slice must not be modified.
func (a *Arena) Callees(n NodeID) []model.Procedure {
	return a.nodes[n].callees
}

// IsCall returns true if the node has candidate callees
func (a *Arena) IsCall(n NodeID) bool {
	return len(a.nodes[n].callees) > 0
}

// RemoveCallee removes the procedure from the candidate callees of n
func (a *Arena) RemoveCallee(n NodeID, callee model.Procedure) {
	d := a.nodes[n]
	kept := d.callees[:0]
	for _, c := range d.callees {
		if c != callee {
			kept = append(kept, c)
		}
	}
	d.callees = kept
}

// Exception returns the exception type of an exceptional sink, or the empty string for any other node
func (a *Arena) Exception(n NodeID) string {
	return a.nodes[n].exception
}

// Removed returns true if the node has been detached
func (a *Arena) Removed(n NodeID) bool {
	return a.nodes[n].removed
}

// Connect adds an edge from x to y
func (a *Arena) Connect(x, y NodeID) {
	a.nodes[x].succs.Insert(int(y))
	a.nodes[y].preds.Insert(int(x))
}

// Disconnect removes the edge from x to y, if it exists
func (a *Arena) Disconnect(x, y NodeID) {
	a.nodes[x].succs.Remove(int(y))
	a.nodes[y].preds.Remove(int(x))
}

// HasEdge returns true if there is an edge from x to y
func (a *Arena) HasEdge(x, y NodeID) bool {
	return a.nodes[x].succs.Has(int(y))
}

// Detach removes all the edges from and to n, and marks n as removed
func (a *Arena) Detach(n NodeID) {
	for _, s := range a.Successors(n) {
		a.Disconnect(n, s)
	}
	for _, p := range a.Predecessors(n) {
		a.Disconnect(p, n)
	}
	a.nodes[n].removed = true
}

// Successors returns the successors of n in increasing handle order
func (a *Arena) Successors(n NodeID) []NodeID {
	return toNodeIDs(&a.nodes[n].succs)
}

// Predecessors returns the predecessors of n in increasing handle order
func (a *Arena) Predecessors(n NodeID) []NodeID {
	return toNodeIDs(&a.nodes[n].preds)
}

// connectAll connects every node in from to every node in to
func (a *Arena) connectAll(from []NodeID, to []NodeID) {
	for _, x := range from {
		for _, y := range to {
			a.Connect(x, y)
		}
	}
}

// Validate checks that the successor and predecessor sets of all nodes are symmetric, and that removed nodes
// have no edges
func (a *Arena) Validate() error {
	for i, d := range a.nodes {
		n := NodeID(i)
		for _, s := range a.Successors(n) {
			if !a.nodes[s].preds.Has(i) {
				return fmt.Errorf("node %d (%s) is a successor of %d (%s) but not its predecessor",
					s, a.Label(s), n, a.Label(n))
			}
		}
		for _, p := range a.Predecessors(n) {
			if !a.nodes[p].succs.Has(i) {
				return fmt.Errorf("node %d (%s) is a predecessor of %d (%s) but not its successor",
					p, a.Label(p), n, a.Label(n))
			}
		}
		if d.removed && (!d.succs.IsEmpty() || !d.preds.IsEmpty()) {
			return fmt.Errorf("removed node %d (%s) still has edges", n, a.Label(n))
		}
	}
	return nil
}

func toNodeIDs(s *intsets.Sparse) []NodeID {
	var ids []NodeID
	for _, x := range s.AppendTo(nil) {
		ids = append(ids, NodeID(x))
	}
	return ids
}

func exceptionLabel(exception string) string {
	return "Exception " + exception
}
