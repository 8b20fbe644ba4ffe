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

// Package adapter implements the Graph Adapter: the thin
// batching layer between domain objects (Target, Label) and opaque
// graphkey.GraphKeys.
package adapter

import (
	"context"

	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/walkgraph"
)

// Adapter wraps a WalkableGraph with the batch operations the rest of
// the engine needs. It does not cache: callers accept
// that values may be absent.
type Adapter struct {
	graph walkgraph.WalkableGraph
}

// New wraps graph.
func New(graph walkgraph.WalkableGraph) *Adapter {
	return &Adapter{graph: graph}
}

// TraversalKey builds the TransitiveTraversal key for a label.
func TraversalKey(l label.Label) graphkey.GraphKey {
	return graphkey.TransitiveTraversalKey{Label: l}
}

// DirectDeps batch-fetches outgoing edges for keys.
func (a *Adapter) DirectDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error) {
	m, err := a.graph.DirectDeps(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "fetching direct deps for %d keys", len(keys)).Err()
	}
	return m, nil
}

// ReverseDeps batch-fetches incoming edges for keys.
func (a *Adapter) ReverseDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error) {
	m, err := a.graph.ReverseDeps(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "fetching reverse deps for %d keys", len(keys)).Err()
	}
	return m, nil
}

// SuccessfulValues batch-fetches the values of keys that evaluated
// successfully; keys that failed or are missing are absent from the
// result.
func (a *Adapter) SuccessfulValues(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]any, error) {
	m, err := a.graph.SuccessfulValues(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "fetching successful values for %d keys", len(keys)).Err()
	}
	return m, nil
}

// MissingAndExceptions reports, for keys not covered by a prior
// SuccessfulValues call, either the recorded exception or nil
// (absent from the graph).
func (a *Adapter) MissingAndExceptions(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]error, error) {
	m, err := a.graph.MissingAndExceptions(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "fetching missing/exceptions for %d keys", len(keys)).Err()
	}
	return m, nil
}

// Value fetches a single key's value.
func (a *Adapter) Value(ctx context.Context, key graphkey.GraphKey) (any, bool, error) {
	v, ok, err := a.graph.Value(ctx, key)
	if err != nil {
		return nil, false, errors.Annotate(err, "fetching value of %s", key).Err()
	}
	return v, ok, nil
}

// Exception fetches a single key's recorded failure, if any.
func (a *Adapter) Exception(ctx context.Context, key graphkey.GraphKey) (error, bool) {
	return a.graph.Exception(ctx, key)
}

// Exists reports whether key has any entry in the graph.
func (a *Adapter) Exists(ctx context.Context, key graphkey.GraphKey) (bool, error) {
	ok, err := a.graph.Exists(ctx, key)
	if err != nil {
		return false, errors.Annotate(err, "checking existence of %s", key).Err()
	}
	return ok, nil
}
