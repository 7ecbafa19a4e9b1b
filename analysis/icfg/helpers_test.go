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
	"embed"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
)

//go:embed testdata
var testfsys embed.FS

func loadTestProgram(t *testing.T, name string) *model.Program {
	filename := filepath.Join("testdata", name)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read file %v: %v", filename, err)
	}
	p, err := model.Parse(filename, b)
	if err != nil {
		t.Fatalf("failed to load %v: %v", filename, err)
	}
	return p
}

func testConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.ValidateGraphs = true
	cfg.LogLevel = int(config.ErrLevel)
	return cfg
}

func procedure(t *testing.T, p *model.Program, name string) model.Procedure {
	proc, ok := p.Procedure(name)
	if !ok {
		t.Fatalf("no procedure %s", name)
	}
	return proc
}

// buildLocals builds the local graphs of all the procedures of the program
func buildLocals(t *testing.T, p *model.Program, cfg *config.Config) *AnalyzerState {
	state := NewAnalyzerState(p, cfg, config.NewLogGroup(cfg))
	if err := state.BuildLocalGraphs(); err != nil {
		t.Fatalf("failed to build local graphs: %v", err)
	}
	return state
}

// edges returns the edges of the graph as "label -> label" strings, sorted
func edges(g *Graph) []string {
	var res []string
	for _, n := range g.Nodes() {
		for _, s := range g.Successors(n) {
			res = append(res, g.Label(n)+" -> "+g.Label(s))
		}
	}
	sort.Strings(res)
	return res
}

// labels returns the multiset of the labels of the graph as a sorted slice
func labels(g *Graph) []string {
	var res []string
	for _, n := range g.Nodes() {
		res = append(res, g.Label(n))
	}
	sort.Strings(res)
	return res
}

func checkEdges(t *testing.T, g *Graph, expected ...string) {
	t.Helper()
	sort.Strings(expected)
	got := edges(g)
	if strings.Join(got, "\n") != strings.Join(expected, "\n") {
		t.Errorf("graph of %s:\nexpected edges\n  %s\ngot\n  %s", g.Procedure, strings.Join(expected, "\n  "),
			strings.Join(got, "\n  "))
	}
}

func checkValid(t *testing.T, g *Graph) {
	t.Helper()
	if err := g.Validate(); err != nil {
		t.Errorf("invalid graph: %v", err)
	}
}

func countLabel(g *Graph, label string) int {
	n := 0
	for _, x := range labels(g) {
		if x == label {
			n++
		}
	}
	return n
}
