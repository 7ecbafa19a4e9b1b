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

package tools

import (
	"strings"
	"testing"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint for %q: %q", errorMsg, hint)
	}
}

func TestHintForFlagAfterFiles(t *testing.T) {
	errorMsg := "error: could not load program:\n -: named files must be .go files: -v"
	validateHint(t, errorMsg, "all command line flags should be before the path")
}

func TestHintForFailedLoadProgram(t *testing.T) {
	errorMsg := "error: could not load program:\n errors found, exiting\n"
	validateHint(t, errorMsg, "either a .yaml program description or the Go packages")
}

func TestHintForInvalidDescription(t *testing.T) {
	errorMsg := "could not load program: in procedure App.a: statement 0: unknown successor x"
	validateHint(t, errorMsg, "program description")
}

func TestHintForReversedGuard(t *testing.T) {
	errorMsg := "could not load program: in procedure App.a: guard E: range 2..1 is empty or reversed"
	validateHint(t, errorMsg, "program description")
}

func TestNoHint(t *testing.T) {
	if hint := HintForErrorMessage("inlining pass failed"); hint != "" {
		t.Errorf("unexpected hint %q", hint)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("", true)
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	if cfg.LogLevel != 4 {
		t.Errorf("verbose should raise the log level to debug, got %d", cfg.LogLevel)
	}
	if _, err := LoadConfig("missing.yaml", false); err == nil {
		t.Errorf("expected an error for a missing config file")
	}
}
