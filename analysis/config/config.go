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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/awslabs/ar-go-icfg/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig. If no file has been set, it returns the
// default config.
func LoadGlobal() (*Config, error) {
	if configFile == "" {
		return NewDefault(), nil
	}
	return Load(configFile)
}

// Config contains the options of the graph construction and the inlining passes.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// if the Namespace is specified and compiles as a regex
	namespaceRegex *regexp.Regexp

	// if the EntrypointFilter is specified and compiles as a regex
	entrypointRegex *regexp.Regexp
}

// Options are the options that can be set in the options section of a config file
type Options struct {
	// ReportsDir is the directory where the graphs are written. If it is not specified in a config file that is
	// loaded, a new directory is created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// Namespace selects the external procedures that are "interesting": dispatched calls to those procedures are
	// resolved by enumerating the overrides in the type hierarchy even when the procedure has no body.
	// The namespace is matched against the qualifier (package or declaring type) of the procedure, as a regex if it
	// compiles, otherwise as a substring. When empty, library procedures are interesting.
	Namespace string `yaml:"namespace"`

	// CallgraphAnalysis is the call graph used to pre-resolve the callees of call sites in Go programs.
	// One of none, static, cha, rta, vta or pointer. With none, the callees are resolved from the type hierarchy.
	CallgraphAnalysis string `yaml:"callgraph-analysis"`

	// SkipImplicitFaults disables the edges to the sinks of runtime faults (indexing, dereferencing, narrowing
	// casts) in the local graphs
	SkipImplicitFaults bool `yaml:"skip-implicit-faults"`

	// ExactExceptionSinks disables the redirection of exceptional edges of an inlined callee to a caller sink
	// whose exception type is a supertype of the callee's sink type
	ExactExceptionSinks bool `yaml:"exact-exception-sinks"`

	// UncheckedException overrides the unchecked base exception type of the program model
	UncheckedException string `yaml:"unchecked-exception"`

	// EntrypointFilter restricts the entry points that are inlined to those whose name matches the filter, as a
	// regex if it compiles, otherwise as a prefix
	EntrypointFilter string `yaml:"entrypoint-filter"`

	// IncludeRecursiveRoots adds one entry point per recursive component of the call dependency graph that has no
	// caller outside the component. Without it, mutually recursive roots are never inlined.
	IncludeRecursiveRoots bool `yaml:"include-recursive-roots"`

	// ValidateGraphs checks the successor/predecessor symmetry of every graph built
	ValidateGraphs bool `yaml:"validate-graphs"`

	// NumRoutines is the number of goroutines used by the parallel passes. If <= 0, DefaultNumRoutines is used.
	NumRoutines int `yaml:"num-routines"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			ReportsDir:            "",
			Namespace:             "",
			CallgraphAnalysis:     CallgraphNone,
			SkipImplicitFaults:    false,
			ExactExceptionSinks:   false,
			UncheckedException:    "",
			EntrypointFilter:      "",
			IncludeRecursiveRoots: false,
			ValidateGraphs:        false,
			NumRoutines:           DefaultNumRoutines,
			LogLevel:              int(InfoLevel),
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(filename, b)
	if err != nil {
		return nil, err
	}
	if err := setReportsDir(cfg, filename); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a configuration from the content of a config file. filename is only used to resolve relative paths
// and in error messages.
func Parse(filename string, content []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.NumRoutines <= 0 {
		cfg.NumRoutines = DefaultNumRoutines
	}
	if cfg.CallgraphAnalysis == "" {
		cfg.CallgraphAnalysis = CallgraphNone
	}
	if !funcutil.Contains(CallgraphAnalysisModes, cfg.CallgraphAnalysis) {
		return nil, fmt.Errorf("%s: unknown callgraph-analysis %q, expected one of %s", filename,
			cfg.CallgraphAnalysis, strings.Join(CallgraphAnalysisModes, ", "))
	}
	cfg.SetNamespace(cfg.Namespace)
	cfg.SetEntrypointFilter(cfg.EntrypointFilter)
	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-graphs")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.RelPath(c.ReportsDir), 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
		c.ReportsDir = c.RelPath(c.ReportsDir)
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if path.IsAbs(filename) {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// SetNamespace sets the namespace filter of the config
func (c *Config) SetNamespace(namespace string) {
	c.Namespace = namespace
	c.namespaceRegex = compileFilter(namespace)
}

// SetEntrypointFilter sets the entry point filter of the config
func (c *Config) SetEntrypointFilter(filter string) {
	c.EntrypointFilter = filter
	c.entrypointRegex = compileFilter(filter)
}

func compileFilter(filter string) *regexp.Regexp {
	if filter == "" {
		return nil
	}
	r, err := regexp.Compile(filter)
	if err != nil {
		return nil
	}
	return r
}

// HasNamespace returns true if a namespace filter has been set
func (c Config) HasNamespace() bool {
	return c.Namespace != ""
}

// MatchNamespace returns true if the qualifier matches the namespace set in the config file. If no namespace has
// been set, it returns false. This function safely considers the case where a namespace has been specified by the
// user, but it could not be compiled to a regex: then the qualifier matches if it contains the namespace.
func (c Config) MatchNamespace(qualifier string) bool {
	if c.namespaceRegex != nil {
		return c.namespaceRegex.MatchString(qualifier)
	} else if c.Namespace != "" {
		return strings.Contains(qualifier, c.Namespace)
	} else {
		return false
	}
}

// MatchEntrypoint returns true if the name of a procedure matches the entry point filter. If no filter has been
// set, the filter matches anything and returns true.
func (c Config) MatchEntrypoint(name string) bool {
	if c.entrypointRegex != nil {
		return c.entrypointRegex.MatchString(name)
	} else if c.EntrypointFilter != "" {
		return strings.HasPrefix(name, c.EntrypointFilter)
	} else {
		return true
	}
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
