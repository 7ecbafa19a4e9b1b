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

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-go-icfg/analysis"
	"github.com/awslabs/ar-go-icfg/cmd/icfg/build"
	"github.com/awslabs/ar-go-icfg/cmd/icfg/deps"
	"github.com/awslabs/ar-go-icfg/cmd/icfg/tools"
	"github.com/awslabs/ar-go-icfg/internal/formatutil"
)

const usage = `icfg: inlined interprocedural control-flow graphs
Usage:
  icfg [tool] [options] <program.yaml | Go package path(s)>
Tools:
  - build: builds the inlined control-flow graph of every entry point and writes them as .dot files
  - deps: prints the call dependency graph: heads, entry points, recursive components and cycles
Examples:
  Build the graphs of a program description: icfg build -out graphs program.yaml
  Print the dependencies of a Go program: icfg deps -config config.yaml ./...`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "build":
		flags, err := build.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := build.Run(flags); err != nil {
			errExit(err)
		}
	case "deps":
		flags, err := deps.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := deps.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", formatutil.Red("error:"), err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(1)
}
