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

package ssamodel

import (
	"fmt"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ComputeCallgraph computes the call graph of prog using the analysis named by mode (one of
// config.CallgraphAnalysisModes). The roots are the functions the reachability-based analyses start from.
// It returns a nil graph for config.CallgraphNone.
func ComputeCallgraph(mode string, prog *ssa.Program, mains []*ssa.Package, roots []*ssa.Function) (*callgraph.Graph,
	error) {
	switch mode {
	case config.CallgraphNone:
		return nil, nil
	case config.CallgraphStatic:
		// Direct calls only: under-approximating, fast
		return static.CallGraph(prog), nil
	case config.CallgraphCha:
		// "Optimization of Object-Oriented Programs Using Static Class Hierarchy Analysis",
		// J. Dean, D. Grove, and C. Chambers, ECOOP'95.
		return cha.CallGraph(prog), nil
	case config.CallgraphRta:
		// "Fast Analysis of C++ Virtual Function Calls", D.Bacon & P. Sweeney, OOPSLA'96
		if len(roots) == 0 {
			return nil, fmt.Errorf("rapid type analysis needs at least one root function")
		}
		return rta.Analyze(roots, true).CallGraph, nil
	case config.CallgraphVta:
		funcs := make(map[*ssa.Function]bool)
		for f := range ssautil.AllFunctions(prog) {
			funcs[f] = true
		}
		return vta.CallGraph(funcs, cha.CallGraph(prog)), nil
	case config.CallgraphPointer:
		// Andersen's analysis, sound if the program does not use reflection or unsafe Go.
		if len(mains) == 0 {
			return nil, fmt.Errorf("pointer analysis needs a main package")
		}
		result, err := pointer.Analyze(&pointer.Config{Mains: mains, BuildCallGraph: true})
		if err != nil {
			return nil, fmt.Errorf("pointer analysis failed: %w", err)
		}
		return result.CallGraph, nil
	default:
		return nil, fmt.Errorf("unsupported callgraph analysis mode %q", mode)
	}
}

// Roots returns the init and main functions of the main packages, or all the functions of pkgs when there is no
// main package.
func Roots(pkgs []*ssa.Package) []*ssa.Function {
	var roots []*ssa.Function
	for _, m := range ssautil.MainPackages(pkgs) {
		roots = append(roots, m.Func("init"), m.Func("main"))
	}
	if len(roots) > 0 {
		return roots
	}
	for _, pkg := range pkgs {
		for _, mem := range pkg.Members {
			if f, ok := mem.(*ssa.Function); ok {
				roots = append(roots, f)
			}
		}
	}
	return roots
}

// callSites indexes the callees of the call graph by call site
func callSites(cg *callgraph.Graph) map[ssa.CallInstruction][]*ssa.Function {
	sites := map[ssa.CallInstruction][]*ssa.Function{}
	for _, node := range cg.Nodes {
		for _, e := range node.Out {
			if e.Site != nil && e.Callee != nil && e.Callee.Func != nil {
				sites[e.Site] = append(sites[e.Site], e.Callee.Func)
			}
		}
	}
	return sites
}
