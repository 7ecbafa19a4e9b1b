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

// Package build implements the frontend that builds the inlined control-flow graph of every entry point of a
// program and writes them in the Graphviz format.
package build

import (
	"fmt"
	"os"
	"strings"

	"github.com/awslabs/ar-go-icfg/analysis"
	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/render"
	"github.com/awslabs/ar-go-icfg/cmd/icfg/tools"
	"github.com/awslabs/ar-go-icfg/internal/formatutil"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"golang.org/x/exp/maps"
)

// Usage is the usage message of the build sub-command
const Usage = `Build the inlined control-flow graphs of a program.
Usage:
  icfg build [options] program.yaml
  icfg build [options] <package path(s)>
Examples:
Build the graphs of a program description in the graphs directory
  % icfg build -out graphs program.yaml
Build the graphs of a Go program, resolving calls with the rapid type analysis
  % icfg build -cg rta -namespace example.com/app ./...
`

// Flags represents the parsed build sub-command flags.
type Flags struct {
	*tools.CommonFlags
	namespace string
	callgraph string
	outDir    string
}

// NewFlags returns the parsed build sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := Flags{CommonFlags: tools.NewCommonFlags("build", Usage)}
	fs := flags.FlagSet
	fs.StringVar(&flags.namespace, "namespace", "", "namespace of the procedures whose overrides are resolved")
	fs.StringVar(&flags.callgraph, "cg", "", "call graph analysis for Go programs. One of: "+
		strings.Join(config.CallgraphAnalysisModes, ", "))
	fs.StringVar(&flags.outDir, "out", "", "output directory of the graphs (default: reports-dir of the config)")
	if err := flags.Parse(args); err != nil {
		return Flags{}, err
	}
	return flags, nil
}

// Run runs the build tool with flags.
func Run(flags Flags) error {
	cfg, err := flags.Config()
	if err != nil {
		return err
	}
	if flags.namespace != "" {
		cfg.SetNamespace(flags.namespace)
	}
	if flags.callgraph != "" {
		if !funcutil.Contains(config.CallgraphAnalysisModes, flags.callgraph) {
			return fmt.Errorf("call graph analysis %q not recognized", flags.callgraph)
		}
		cfg.CallgraphAnalysis = flags.callgraph
	}
	logger := config.NewLogGroup(cfg)

	fmt.Fprintln(os.Stderr, formatutil.Faint("Reading sources"))
	m, err := flags.LoadModel(cfg, logger)
	if err != nil {
		return err
	}
	state, err := analysis.BuildICFGs(m, cfg, logger)
	if err != nil {
		return err
	}

	dir := flags.outDir
	if dir == "" {
		dir = cfg.ReportsDir
	}
	if dir == "" {
		dir = "."
	}
	entries := maps.Keys(state.ICFGs)
	funcutil.SortByString(entries)
	for _, entry := range entries {
		g := state.ICFGs[entry]
		filename := render.EntryFilename(dir, entry)
		if err := render.GraphvizToFile(filename, entry.String(), g.CGraph()); err != nil {
			return fmt.Errorf("could not write graph of %s: %w", entry, err)
		}
		stats := state.Stats[entry]
		fmt.Fprintf(os.Stderr, "%s %s (%d nodes, %d calls inlined, %d recursive splices)\n",
			formatutil.Green("Wrote"), filename, len(g.Nodes()), stats.InlinedCalls, stats.RecursiveSplices)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, formatutil.Yellow("No entry point with a non-empty graph"))
	}
	return nil
}
