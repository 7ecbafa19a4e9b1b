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

package analysis

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/icfg"
)

func testConfig() (*config.Config, *config.LogGroup) {
	cfg := config.NewDefault()
	cfg.ValidateGraphs = true
	cfg.LogLevel = int(config.ErrLevel)
	return cfg, config.NewLogGroup(cfg)
}

func TestIsProgramDescription(t *testing.T) {
	for _, tc := range []struct {
		args     []string
		expected bool
	}{
		{[]string{"program.yaml"}, true},
		{[]string{"dir/program.YML"}, true},
		{[]string{"main.go"}, false},
		{[]string{"./..."}, false},
		{[]string{"a.yaml", "b.yaml"}, false},
		{nil, false},
	} {
		if IsProgramDescription(tc.args) != tc.expected {
			t.Errorf("IsProgramDescription(%v) should be %v", tc.args, tc.expected)
		}
	}
}

func TestBuildICFGsFromDescription(t *testing.T) {
	cfg, logger := testConfig()
	m, err := LoadModel(cfg, logger, false, []string{filepath.Join("testdata", "program.yaml")})
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	state, err := BuildICFGs(m, cfg, logger)
	if err != nil {
		t.Fatalf("failed to build graphs: %v", err)
	}
	if len(state.ICFGs) != 1 {
		t.Fatalf("expected one entry point, got %d", len(state.ICFGs))
	}
	for entry, g := range state.ICFGs {
		if entry.String() != "Server.main" {
			t.Errorf("unexpected entry point %s", entry)
		}
		if err := g.Validate(); err != nil {
			t.Errorf("invalid graph: %v", err)
		}
		if _, ok := g.ExceptionalSinks["ParseException"]; ok {
			t.Errorf("parse exceptions are caught in Server.handle:\n%s", g)
		}
		if _, ok := g.ExceptionalSinks["RuntimeException"]; !ok {
			t.Errorf("library calls may raise runtime exceptions:\n%s", g)
		}
		if state.Stats[entry].RecursiveSplices != 1 {
			t.Errorf("expected the recursion of Parser.parse to be spliced, got %+v", state.Stats[entry])
		}
	}
}

func TestBuildICFGsFromGo(t *testing.T) {
	cfg, logger := testConfig()
	m, err := LoadModel(cfg, logger, false, []string{filepath.Join("testdata", "src", "hello", "main.go")})
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	state, err := BuildICFGs(m, cfg, logger)
	if err != nil {
		t.Fatalf("failed to build graphs: %v", err)
	}
	found := false
	for entry, g := range state.ICFGs {
		if !strings.HasSuffix(entry.String(), ".main") {
			continue
		}
		found = true
		for _, n := range g.CallNodes() {
			for _, c := range g.Callees(n) {
				if m.InModel(c) {
					t.Errorf("%s should have been inlined in %s", c, entry)
				}
			}
		}
	}
	if !found {
		t.Errorf("no graph for the main function")
	}
}

func TestLoadModelErrors(t *testing.T) {
	cfg, logger := testConfig()
	if _, err := LoadModel(cfg, logger, false, nil); err == nil {
		t.Errorf("expected an error without arguments")
	}
	_, err := LoadModel(cfg, logger, false, []string{filepath.Join("testdata", "missing.yaml")})
	if err == nil || !strings.Contains(err.Error(), "could not load program") {
		t.Errorf("expected a load error, got %v", err)
	}
}

func TestInliningPassNeedsLocalPass(t *testing.T) {
	cfg, logger := testConfig()
	m, err := LoadModel(cfg, logger, false, []string{filepath.Join("testdata", "program.yaml")})
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	if err := RunInliningPass(icfg.NewAnalyzerState(m, cfg, logger)); err == nil {
		t.Errorf("expected an error")
	}
}
