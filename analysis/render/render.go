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

// Package render writes the inlined control-flow graphs and the call dependency graph in the Graphviz format.
package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/formatutil"
	"github.com/awslabs/ar-go-icfg/internal/graphutil"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// WriteGraphviz writes a graphviz representation of the graph g named name to w
func WriteGraphviz(w io.Writer, name string, g graphutil.CGraph) error {
	b, err := dot.Marshal(g, name, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode graph %s: %w", name, err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// GraphvizToFile writes a graphviz representation of the graph g named name in the file filename, creating the
// directories of the file if needed
func GraphvizToFile(filename string, name string, g graphutil.CGraph) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	return WriteGraphviz(w, name, g)
}

// EntryFilename returns the name of the file of the graph of the entry point in dir
func EntryFilename(dir string, entry model.Procedure) string {
	return filepath.Join(dir, formatutil.Filename(entry.String())+".dot")
}
