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
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/analysis/ssamodel"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. We load all possible information.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram represents a loaded program.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages are the SSA packages of the packages matched by the arguments of the load.
	Packages []*ssa.Package
}

// LoadProgram loads a program on platform "platform" using the buildmode provided and the args.
// To understand how to specify the args, look at the documentation of packages.Load.
func LoadProgram(config *packages.Config,
	platform string,
	buildmode ssa.BuilderMode,
	args []string) (LoadedProgram, error) {

	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	if platform != "" {
		config.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	// load, parse and type check the given packages
	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}

	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}

	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found, exiting")
	}

	// Construct SSA for all the packages we have loaded
	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)

	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}

	// Build SSA for entire program
	program.Build()

	return LoadedProgram{Program: program, Packages: ssaPackages}, nil
}

// IsProgramDescription returns true if the arguments name a single YAML program description
func IsProgramDescription(args []string) bool {
	if len(args) != 1 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(args[0]))
	return ext == ".yaml" || ext == ".yml"
}

// LoadModel loads the program model of the arguments: the model of a YAML program description when
// IsProgramDescription(args), otherwise the SSA model of the Go packages matched by the arguments.
func LoadModel(cfg *config.Config, logger *config.LogGroup, withTests bool, args []string) (model.Model, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no program to load")
	}
	if IsProgramDescription(args) {
		logger.Infof("Loading program description %s", args[0])
		p, err := model.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("could not load program: %w", err)
		}
		return p, nil
	}

	logger.Infof("Loading Go packages %s", strings.Join(args, " "))
	pkgConfig := &packages.Config{
		Mode:  PkgLoadMode,
		Tests: withTests,
		Fset:  token.NewFileSet(),
	}
	loaded, err := LoadProgram(pkgConfig, "", ssa.BuilderMode(0), args)
	if err != nil {
		return nil, fmt.Errorf("could not load program: %w", err)
	}
	m, err := ssamodel.New(loaded.Program, loaded.Packages, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("could not build program model: %w", err)
	}
	return m, nil
}
