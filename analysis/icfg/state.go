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
)

// AnalyzerState holds the results of the passes on a program model. It is owned by the driver that runs the
// passes; the local graphs are written by the local pass only and read by the inlining pass.
type AnalyzerState struct {
	// Config is the configuration of the passes
	Config *config.Config

	// Logger is used by the passes to log their progress
	Logger *config.LogGroup

	// Model is the program model analyzed
	Model model.Model

	// LocalGraphs maps the procedures with a body to their local graph
	LocalGraphs map[model.Procedure]*Graph

	// Dependencies is the call dependency graph of the local graphs
	Dependencies *CallDependencyGraph

	// ICFGs maps the entry points to their inlined graph. Entries with an empty graph are absent.
	ICFGs map[model.Procedure]*Graph

	// Stats are the inlining statistics of every entry point
	Stats map[model.Procedure]InlineStats
}

// NewAnalyzerState returns a state for the model, before any pass has run
func NewAnalyzerState(m model.Model, cfg *config.Config, logger *config.LogGroup) *AnalyzerState {
	return &AnalyzerState{
		Config:      cfg,
		Logger:      logger,
		Model:       m,
		LocalGraphs: map[model.Procedure]*Graph{},
		ICFGs:       map[model.Procedure]*Graph{},
		Stats:       map[model.Procedure]InlineStats{},
	}
}

// BuildLocalGraphs builds the local graph of every procedure of the model that has a body, using
// Config.NumRoutines goroutines, and the call dependency graph
func (s *AnalyzerState) BuildLocalGraphs() error {
	builder := NewLocalFlowGraphBuilder(s.Model, s.Config, s.Logger)
	procs := funcutil.Filter(s.Model.Procedures(), s.Model.HasBody)
	graphs := funcutil.MapParallel(procs, builder.Build, s.Config.NumRoutines)
	for i, p := range procs {
		s.LocalGraphs[p] = graphs[i]
		if s.Config.ValidateGraphs {
			if err := graphs[i].Validate(); err != nil {
				return fmt.Errorf("invalid local graph: %w", err)
			}
		}
	}
	s.Dependencies = NewCallDependencyGraph(s.Model, s.LocalGraphs)
	return nil
}

// Entrypoints returns the entry points of the inlining. The local graphs must have been built.
func (s *AnalyzerState) Entrypoints() []model.Procedure {
	if s.Dependencies == nil {
		return nil
	}
	return s.Dependencies.Entrypoints(s.Config)
}

// InlineEntrypoints builds the inlined graph of every entry point, in parallel. Entry points whose graph is empty
// are skipped.
func (s *AnalyzerState) InlineEntrypoints() error {
	inliner := NewWholeProgramInliner(s.Model, s.LocalGraphs, s.Config, s.Logger)
	type result struct {
		graph *Graph
		stats InlineStats
	}
	entries := s.Entrypoints()
	results := funcutil.MapParallel(entries, func(entry model.Procedure) result {
		g, stats := inliner.Inline(entry)
		return result{g, stats}
	}, s.Config.NumRoutines)

	for i, entry := range entries {
		res := results[i]
		if res.graph == nil || res.graph.Empty() {
			s.Logger.Debugf("Skipping %s: empty graph", entry)
			continue
		}
		if s.Config.ValidateGraphs {
			if err := res.graph.Validate(); err != nil {
				return fmt.Errorf("invalid inlined graph: %w", err)
			}
		}
		s.ICFGs[entry] = res.graph
		s.Stats[entry] = res.stats
		s.Logger.Debugf("Inlined %s: %d calls inlined, %d recursive splices, %d nodes", entry,
			res.stats.InlinedCalls, res.stats.RecursiveSplices, len(res.graph.Nodes()))
	}
	return nil
}
