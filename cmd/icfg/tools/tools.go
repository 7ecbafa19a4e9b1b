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

// Package tools contains the flags, config loading and error hints shared by the icfg sub-commands.
package tools

import (
	"flag"
	"fmt"
	"go/build"
	"os"

	"github.com/awslabs/ar-go-icfg/analysis"
	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"golang.org/x/tools/go/buildutil"
)

// CommonFlags are the flags of every sub-command. The arguments left after parsing are the inputs: a program
// description or Go package patterns.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
	WithTest   bool
}

// NewCommonFlags returns a flag set for the sub-command with -config, -verbose, -with-test and -build-tags bound.
// Sub-commands add their own flags to FlagSet before calling Parse. -help prints usage followed by the flags.
func NewCommonFlags(name string, usage string) *CommonFlags {
	f := &CommonFlags{FlagSet: flag.NewFlagSet(name, flag.ExitOnError)}
	f.FlagSet.StringVar(&f.ConfigPath, "config", "", "config file path for the passes")
	f.FlagSet.BoolVar(&f.Verbose, "verbose", false, "log at debug level")
	f.FlagSet.BoolVar(&f.WithTest, "with-test", false, "load tests of Go packages")
	f.FlagSet.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "build-tags", buildutil.TagsFlagDoc)
	f.FlagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "Options:")
		f.FlagSet.VisitAll(func(fl *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", fl.Name, fl.Usage, fl.DefValue)
		})
	}
	return f
}

// Parse parses the arguments of the sub-command
func (f *CommonFlags) Parse(args []string) error {
	if err := f.FlagSet.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command %s with args %v: %v", f.FlagSet.Name(), args, err)
	}
	return nil
}

// Inputs returns the arguments that are not flags
func (f *CommonFlags) Inputs() []string {
	return f.FlagSet.Args()
}

// Config returns the config of -config, or the default config. With -verbose, the log level is raised to debug.
func (f *CommonFlags) Config() (*config.Config, error) {
	return LoadConfig(f.ConfigPath, f.Verbose)
}

// LoadModel loads the program model of the inputs
func (f *CommonFlags) LoadModel(cfg *config.Config, logger *config.LogGroup) (model.Model, error) {
	return analysis.LoadModel(cfg, logger, f.WithTest, f.Inputs())
}

// LoadConfig loads the config file at configPath, or returns the default config when configPath is empty.
// With verbose, the log level is raised to debug.
func LoadConfig(configPath string, verbose bool) (*config.Config, error) {
	cfg := config.NewDefault()
	if configPath != "" {
		config.SetGlobalConfig(configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %v", configPath, err)
		}
		cfg = loaded
	}
	if verbose && cfg.LogLevel < int(config.DebugLevel) {
		cfg.LogLevel = int(config.DebugLevel)
	}
	return cfg, nil
}
