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

const (
	// CallgraphNone resolves callees from the program model only
	CallgraphNone = "none"
	// CallgraphStatic uses the static callgraph, direct calls only
	CallgraphStatic = "static"
	// CallgraphCha uses the class hierarchy analysis
	CallgraphCha = "cha"
	// CallgraphRta uses the rapid type analysis
	CallgraphRta = "rta"
	// CallgraphVta uses the variable type analysis
	CallgraphVta = "vta"
	// CallgraphPointer uses the pointer analysis
	CallgraphPointer = "pointer"

	// DefaultNumRoutines is the default number of goroutines of the parallel passes
	DefaultNumRoutines = 4
)

// CallgraphAnalysisModes lists the accepted values of the callgraph-analysis option
var CallgraphAnalysisModes = []string{
	CallgraphNone, CallgraphStatic, CallgraphCha, CallgraphRta, CallgraphVta, CallgraphPointer,
}
