// Copyright 2026 The Depquery Authors.
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

// Package depquery is the core query engine: it
// translates query expressions into batched, deduplicated, streaming
// traversals over a caller-supplied walkable graph, bounded by a
// universe scope.
package depquery

import (
	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/expr"
	"github.com/rieckegino/depquery/target"
)

// BatchSize is the shared batch threshold used by both the Batch
// Streaming Callback and the rbuildfiles Engine.
const BatchSize = 10000

// Config is the set of options a caller supplies to build an
// Environment.
type Config struct {
	// KeepGoing: on errors, warn and continue vs. abort.
	KeepGoing bool
	// LoadingPhaseThreads sizes the worker pool used for pattern
	// resolution.
	LoadingPhaseThreads int
	// DependencyFilter selects which rule attribute edges count as
	// "deps".
	DependencyFilter target.DependencyFilter
	// ExtraFunctions are query primitives injected beyond this engine's
	// own allrdeps/rbuildfiles.
	ExtraFunctions []expr.Function
	// ParserPrefix is the workspace-relative prefix used to absolutize
	// target patterns.
	ParserPrefix string
	// UniverseScope bounds which targets are loadable; must be non-empty.
	UniverseScope []string
}

// Validate checks the configuration invariants: an empty universe or a
// non-positive thread count is a Configuration error.
func (c Config) Validate() error {
	if len(c.UniverseScope) == 0 {
		return errors.Reason("depquery: universe scope must not be empty").Err()
	}
	if c.LoadingPhaseThreads <= 0 {
		return errors.Reason("depquery: loading phase threads must be positive").Err()
	}
	return nil
}
