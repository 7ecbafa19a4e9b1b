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
	"testing"

	"github.com/awslabs/ar-go-icfg/analysis/config"
)

func TestLocalGraphSequence(t *testing.T) {
	p := loadTestProgram(t, "sequence.yaml")
	state := buildLocals(t, p, testConfig())

	a := state.LocalGraphs[procedure(t, p, "App.a")]
	checkEdges(t, a, "source -> App.b", "App.b -> App.c", "App.c -> sink")
	if len(a.Calls) != 2 || len(a.CallNodes()) != 2 {
		t.Errorf("expected 2 call nodes, got %d", len(a.Calls))
	}
	for _, g := range state.LocalGraphs {
		checkValid(t, g)
		if g.Sink != NoNode && len(g.Successors(g.Sink)) > 0 {
			t.Errorf("sink of %s has successors", g.Procedure)
		}
		if len(g.Predecessors(g.Source)) > 0 {
			t.Errorf("source of %s has predecessors", g.Procedure)
		}
	}

	noop := state.LocalGraphs[procedure(t, p, "App.noop")]
	if !noop.Empty() || noop.Sink != NoNode {
		t.Errorf("a procedure that never returns should have an empty graph without sink")
	}
}

func TestLocalGraphCallSequence(t *testing.T) {
	p := loadTestProgram(t, "recursion.yaml")
	state := buildLocals(t, p, testConfig())
	checkEdges(t, state.LocalGraphs[procedure(t, p, "Rec.b")], "source -> Lib.z", "Lib.z -> Rec.a", "Rec.a -> sink")
}

func TestLocalGraphLoopReachesFixpoint(t *testing.T) {
	p := loadTestProgram(t, "loop.yaml")
	state := buildLocals(t, p, testConfig())
	g := state.LocalGraphs[procedure(t, p, "Loop.header")]
	checkEdges(t, g,
		"source -> Lib.a",
		"source -> Lib.b",
		"Lib.a -> Lib.a",
		"Lib.a -> Lib.b",
		"Lib.b -> sink")
	checkValid(t, g)
}

func TestLocalGraphGuardedAndUnguardedCalls(t *testing.T) {
	p := loadTestProgram(t, "exceptions.yaml")
	state := buildLocals(t, p, testConfig())

	guarded := state.LocalGraphs[procedure(t, p, "Exc.guarded")]
	checkEdges(t, guarded,
		"source -> Exc.risky",
		"Exc.risky -> sink",
		"Exc.risky -> Lib.log",
		"Lib.log -> sink")
	if len(guarded.ExceptionalSinks) != 0 {
		t.Errorf("guarded call should not have exceptional sinks")
	}

	unguarded := state.LocalGraphs[procedure(t, p, "Exc.unguarded")]
	checkEdges(t, unguarded,
		"source -> Exc.risky",
		"Exc.risky -> sink",
		"Exc.risky -> Exception IOException")

	risky := state.LocalGraphs[procedure(t, p, "Exc.risky")]
	checkEdges(t, risky,
		"source -> Lib.read",
		"Lib.read -> sink",
		"Lib.read -> Exception IOException")

	rethrow := state.LocalGraphs[procedure(t, p, "Exc.rethrow")]
	checkEdges(t, rethrow, "source -> Lib.log", "Lib.log -> sink")

	sneaky := state.LocalGraphs[procedure(t, p, "Exc.sneaky")]
	checkEdges(t, sneaky, "source -> Exception FileNotFound")
	if sneaky.Sink != NoNode {
		t.Errorf("a procedure that always throws should have no sink")
	}
}

func TestLocalGraphImplicitFaults(t *testing.T) {
	p := loadTestProgram(t, "exceptions.yaml")
	state := buildLocals(t, p, testConfig())
	checkEdges(t, state.LocalGraphs[procedure(t, p, "Exc.faulty")],
		"source -> Exception NullPointerException",
		"source -> Exception IndexOutOfBounds",
		"source -> Lib.log",
		"Lib.log -> sink")

	cfg := testConfig()
	cfg.SkipImplicitFaults = true
	state = buildLocals(t, p, cfg)
	checkEdges(t, state.LocalGraphs[procedure(t, p, "Exc.faulty")], "source -> Lib.log", "Lib.log -> sink")
}

func TestLocalGraphUncheckedException(t *testing.T) {
	p := loadTestProgram(t, "unchecked.yaml")
	state := buildLocals(t, p, testConfig())
	checkEdges(t, state.LocalGraphs[procedure(t, p, "Main.main")],
		"source -> Main.helper",
		"Main.helper -> Exception RuntimeException",
		"Main.helper -> Lib.io",
		"Lib.io -> sink")

	cfg := testConfig()
	cfg.UncheckedException = "Error"
	state = buildLocals(t, p, cfg)
	checkEdges(t, state.LocalGraphs[procedure(t, p, "Main.helper")],
		"source -> Lib.compute",
		"Lib.compute -> Exception Error",
		"Lib.compute -> sink")
}

func TestDuplicateSharesNoNode(t *testing.T) {
	p := loadTestProgram(t, "exceptions.yaml")
	state := buildLocals(t, p, testConfig())
	g := state.LocalGraphs[procedure(t, p, "Exc.unguarded")]
	before := g.String()

	dup := g.Duplicate()
	checkValid(t, dup)
	if dup.String() != before {
		t.Errorf("duplicate should have the same structure:\n%s\n%s", dup, before)
	}
	if dup.Arena() == g.Arena() {
		t.Fatalf("duplicate should be in a new arena")
	}
	for _, n := range dup.Nodes() {
		for _, m := range g.Nodes() {
			if dup.Arena().UID(n) == g.Arena().UID(m) {
				t.Errorf("duplicate shares node %s with the original", dup.Label(n))
			}
		}
	}

	dup.Arena().Detach(dup.Source)
	if g.String() != before || g.Empty() {
		t.Errorf("modifying the duplicate should not modify the original")
	}
	if len(dup.Calls) != len(g.Calls) {
		t.Errorf("duplicate should map the same statements to call nodes")
	}
}

func TestLocalGraphRendersAsCGraph(t *testing.T) {
	p := loadTestProgram(t, "sequence.yaml")
	state := buildLocals(t, p, config.NewDefault())
	g := state.LocalGraphs[procedure(t, p, "App.a")]
	cg := g.CGraph()
	if len(cg.Keys) != 4 || cg.NumEdges() != 3 {
		t.Errorf("expected 4 nodes and 3 edges, got %d and %d", len(cg.Keys), cg.NumEdges())
	}
	if cg.IDMap[int64(g.Source)].Shape != "Mdiamond" || cg.IDMap[int64(g.Sink)].Shape != "Msquare" {
		t.Errorf("unexpected shapes for source and sink")
	}
}
