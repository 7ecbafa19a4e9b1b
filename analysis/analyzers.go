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

// Package analysis contains helper functions for loading programs and running the graph construction passes.
package analysis

import (
	"fmt"
	"time"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/icfg"
	"github.com/awslabs/ar-go-icfg/analysis/model"
)

// Version is the version of the tools
const Version = "v0.1.0"

// RunLocalPass builds the local flow graph of every procedure of the state's model in parallel, and the call
// dependency graph of the local graphs.
func RunLocalPass(state *icfg.AnalyzerState) error {
	state.Logger.Infof("Starting local flow graphs construction ...")
	start := time.Now()
	if err := state.BuildLocalGraphs(); err != nil {
		return fmt.Errorf("local pass failed: %w", err)
	}
	state.Logger.Infof("Local pass done (%.2f s): %d graphs, %d entry points.", time.Since(start).Seconds(),
		len(state.LocalGraphs), len(state.Entrypoints()))
	return nil
}

// RunInliningPass builds the inlined graph of every entry point of the state. The local pass must have run.
func RunInliningPass(state *icfg.AnalyzerState) error {
	if state.Dependencies == nil {
		return fmt.Errorf("inlining pass needs the local graphs")
	}
	state.Logger.Infof("Starting whole-program inlining ...")
	start := time.Now()
	if err := state.InlineEntrypoints(); err != nil {
		return fmt.Errorf("inlining pass failed: %w", err)
	}
	var total icfg.InlineStats
	for _, stats := range state.Stats {
		total.Add(stats)
	}
	state.Logger.Infof("Inlining pass done (%.2f s): %d graphs, %d calls inlined, %d recursive splices.",
		time.Since(start).Seconds(), len(state.ICFGs), total.InlinedCalls, total.RecursiveSplices)
	return nil
}

// BuildICFGs runs the local and the inlining passes on the model and returns the resulting state
func BuildICFGs(m model.Model, cfg *config.Config, logger *config.LogGroup) (*icfg.AnalyzerState, error) {
	state := icfg.NewAnalyzerState(m, cfg, logger)
	if err := RunLocalPass(state); err != nil {
		return nil, err
	}
	if err := RunInliningPass(state); err != nil {
		return nil, err
	}
	return state, nil
}
