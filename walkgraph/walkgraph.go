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

// Package walkgraph pins the interfaces this engine consumes from its
// walkable-graph collaborator. Construction, persistence,
// and invalidation of the graph are out of scope; this
// package only fixes the shape batch callers need.
package walkgraph

import (
	"context"

	"github.com/rieckegino/depquery/events"
	"github.com/rieckegino/depquery/graphkey"
)

// TransitiveTraversalValue is the per-target payload recording a
// target's loading outcome.
type TransitiveTraversalValue struct {
	// FirstErrorMessage is set when loading this target recovered from an
	// error.
	FirstErrorMessage string
	HasError          bool
}

// PackageLookupValue tells whether a directory contains a package and,
// if so, under which source root it lives.
type PackageLookupValue struct {
	PackageExists bool
	Root          string
}

// EvaluationResult is what WalkableGraphFactory.PrepareAndGet returns:
// the graph to walk plus whether universe loading hit a cycle.
type EvaluationResult struct {
	Graph    WalkableGraph
	HasCycle bool
}

// WalkableGraphFactory prepares the universe and hands back a graph to
// walk.
type WalkableGraphFactory interface {
	// PrepareAndGet loads universeScope (patterns, absolutized under
	// parserPrefix) using up to threads workers, reporting progress and
	// recoverable errors to sink.
	PrepareAndGet(ctx context.Context, universeScope []string, parserPrefix string, threads int, sink events.Handler) (EvaluationResult, error)
	// UniverseKey is the GraphKey of the universe's own root node, used
	// by the Query Driver to detect the single-root-value contract.
	UniverseKey(scope []string, prefix string) graphkey.GraphKey
}

// WalkableGraph is a read-only, batched view of the dependency graph.
// All lookups are batched: absence from a result map means
// "not in universe, failed, or cycle-broken", never an
// error by itself.
type WalkableGraph interface {
	// DirectDeps returns, for each key present in the graph, its outgoing
	// edges. Keys with no entry in the result were missing or cyclic.
	DirectDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error)
	// ReverseDeps returns, for each key present in the graph, its
	// incoming edges.
	ReverseDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error)
	// SuccessfulValues returns the values of keys that evaluated
	// successfully. Keys that failed, are missing, or cycle-broken are
	// simply absent from the result.
	SuccessfulValues(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]any, error)
	// MissingAndExceptions reports, for keys not covered by
	// SuccessfulValues, either the recorded exception or nil (meaning
	// absent from the graph entirely).
	MissingAndExceptions(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]error, error)
	// Value returns a single key's value, if present and successful.
	Value(ctx context.Context, key graphkey.GraphKey) (any, bool, error)
	// Exception returns a single key's recorded failure, if any.
	Exception(ctx context.Context, key graphkey.GraphKey) (error, bool)
	// Exists reports whether key has any entry in the graph at all.
	Exists(ctx context.Context, key graphkey.GraphKey) (bool, error)
}
