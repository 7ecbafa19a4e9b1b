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

package icfg

import (
	"github.com/awslabs/ar-go-icfg/analysis/config"
	"github.com/awslabs/ar-go-icfg/analysis/model"
	"github.com/awslabs/ar-go-icfg/internal/funcutil"
)

// Resolver computes the candidate callees of the statements of a program model
type Resolver struct {
	model  model.Model
	config *config.Config
}

// NewResolver returns a resolver for the model with the namespace of the config
func NewResolver(m model.Model, cfg *config.Config) *Resolver {
	return &Resolver{model: m, config: cfg}
}

// IsModeled returns true if the procedure is selected for the resolution of dispatched calls through the type
// hierarchy: its qualifier matches the namespace of the config or, when there is no namespace, it is a library
// procedure.
func (r *Resolver) IsModeled(p model.Procedure) bool {
	if r.config.HasNamespace() {
		return r.config.MatchNamespace(r.model.Qualifier(p))
	}
	return r.model.IsLibrary(p)
}

// Resolve returns the candidate callees of the statement, sorted by name and without duplicates. It returns nil
// when the statement does not call anything, or when the target of a dispatched call is neither modeled nor has a
// body.
func (r *Resolver) Resolve(s model.Statement) []model.Procedure {
	call := r.model.CallAt(s)
	switch call.Kind {
	case model.StaticCall, model.UnmodeledCall:
		if call.Callee == nil {
			return nil
		}
		return []model.Procedure{call.Callee}
	case model.ResolvedCall:
		return normalize(call.Candidates)
	case model.DispatchedCall:
		return normalize(r.resolveDispatched(call))
	default:
		return nil
	}
}

func (r *Resolver) resolveDispatched(call model.Call) []model.Procedure {
	var res []model.Procedure
	hasBody := r.model.HasBody(call.Callee)
	if hasBody {
		res = append(res, call.Callee)
	}
	if !hasBody && !r.IsModeled(call.Callee) {
		return nil
	}
	var types []string
	if r.model.IsInterface(call.DeclaringType) {
		types = r.model.ImplementersOf(call.DeclaringType)
	} else {
		types = r.model.SubtypesOf(call.DeclaringType)
	}
	for _, t := range types {
		if m, ok := r.model.DeclaredMethod(t, call.Signature); ok {
			res = append(res, m)
		}
	}
	if len(res) == 0 {
		res = append(res, call.Callee)
	}
	return res
}

// normalize returns the procedures sorted by name, without duplicates
func normalize(procs []model.Procedure) []model.Procedure {
	var res []model.Procedure
	for _, p := range procs {
		if p != nil && !funcutil.Contains(res, p) {
			res = append(res, p)
		}
	}
	funcutil.SortByString(res)
	return res
}
