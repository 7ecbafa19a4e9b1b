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
	"github.com/awslabs/ar-go-icfg/analysis/model"
)

func TestInlineEntrypoints(t *testing.T) {
	p := loadTestProgram(t, "sequence.yaml")
	state := buildLocals(t, p, testConfig())
	if err := state.InlineEntrypoints(); err != nil {
		t.Fatalf("failed to inline: %v", err)
	}
	if len(state.ICFGs) != 1 {
		t.Fatalf("expected only App.a to be inlined, got %d graphs", len(state.ICFGs))
	}
	a := procedure(t, p, "App.a")
	g, ok := state.ICFGs[a]
	if !ok {
		t.Fatalf("no inlined graph for App.a")
	}
	checkEdges(t, g, "source -> Lib.x", "Lib.x -> Lib.y", "Lib.y -> sink")
	if _, ok := state.ICFGs[procedure(t, p, "App.noop")]; ok {
		t.Errorf("empty graphs should be skipped")
	}
	if state.Stats[a].InlinedCalls != 2 {
		t.Errorf("unexpected stats %+v", state.Stats[a])
	}
}

func TestInlineEntrypointsWithFilter(t *testing.T) {
	p := loadTestProgram(t, "recursion.yaml")
	cfg := testConfig()
	cfg.IncludeRecursiveRoots = true
	cfg.NumRoutines = 1
	cfg.SetEntrypointFilter("Rec\\.f")
	state := buildLocals(t, p, cfg)
	if err := state.InlineEntrypoints(); err != nil {
		t.Fatalf("failed to inline: %v", err)
	}
	f := procedure(t, p, "Rec.f")
	if len(state.ICFGs) != 1 || state.ICFGs[f] == nil {
		t.Fatalf("expected only Rec.f to be inlined, got %v", state.ICFGs)
	}
	if state.Stats[f].RecursiveSplices != 1 {
		t.Errorf("unexpected stats %+v", state.Stats[f])
	}
}

func TestEntrypointsBeforeLocalPass(t *testing.T) {
	p := model.NewProgram("")
	cfg := testConfig()
	state := NewAnalyzerState(p, cfg, config.NewLogGroup(cfg))
	if len(state.Entrypoints()) != 0 {
		t.Errorf("no entry points expected before the local pass")
	}
}
