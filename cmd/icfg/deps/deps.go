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

// Package deps implements the frontend that prints the call dependency graph of a program: the procedures no
// other procedure calls, the recursive components and the elementary cycles.
package deps

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awslabs/ar-go-icfg/analysis"
	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/icfg"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/analysis/render"
	"github.com/awslabs/ar-go-icfg/cmd/icfg/tools"
	"github.com/awslabs/ar-go-icfg/internal/formatutil"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
)

// Usage is the usage message of the deps sub-command
const Usage = `Print the call dependency graph of a program.
Usage:
  icfg deps [options] program.yaml
  icfg deps [options] <package path(s)>
Examples:
  % icfg deps -graph deps.dot program.yaml
`

// Flags represents the parsed deps sub-command flags.
type Flags struct {
	*tools.CommonFlags
	graphPath string
}

// NewFlags returns the parsed deps sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := Flags{CommonFlags: tools.NewCommonFlags("deps", Usage)}
	flags.FlagSet.StringVar(&flags.graphPath, "graph", "", "output graphviz file path")
	if err := flags.Parse(args); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

// Run runs the deps tool with flags.
func Run(flags Flags) error {
	cfg, err := flags.Config()
	if err != nil {
		return err
	}
	logger := config.NewLogGroup(cfg)
	m, err := flags.LoadModel(cfg, logger)
	if err != nil {
		return err
	}
	state := icfg.NewAnalyzerState(m, cfg, logger)
	if err := analysis.RunLocalPass(state); err != nil {
		return err
	}
	Print(os.Stdout, state)

	if flags.graphPath != "" {
		if err := render.GraphvizToFile(flags.graphPath, "dependencies", state.Dependencies.CGraph()); err != nil {
			return fmt.Errorf("could not write dependency graph: %w", err)
		}
		fmt.Fprintln(os.Stderr, formatutil.Faint("Wrote dependency graph in "+flags.graphPath))
	}
	return nil
}

// Print prints the summary of the call dependency graph of the state on w
func Print(w io.Writer, state *icfg.AnalyzerState) {
	cdg := state.Dependencies
	stats := cdg.Stats()
	fmt.Fprintf(w, "%s %d procedures, %d dependencies, %d self-calls\n", formatutil.Bold("Dependencies:"),
		len(cdg.Nodes()), stats.Size, stats.Loops)

	fmt.Fprintf(w, "%s\n", formatutil.Bold("Heads:"))
	for _, p := range cdg.Heads() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "%s\n", formatutil.Bold("Entry points:"))
	for _, p := range state.Entrypoints() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "%s\n", formatutil.Bold("Recursive components:"))
	for _, scc := range cdg.RecursiveComponents() {
		fmt.Fprintf(w, "  {%s}\n", join(scc, ", "))
	}
	fmt.Fprintf(w, "%s\n", formatutil.Bold("Cycles:"))
	for _, cycle := range cdg.Cycles() {
		fmt.Fprintf(w, "  %s\n", join(cycle, " -> "))
	}
}

func join(procs []model.Procedure, sep string) string {
	return strings.Join(funcutil.Map(procs, model.Procedure.String), sep)
}
