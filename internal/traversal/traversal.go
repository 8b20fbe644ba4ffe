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

// Package traversal implements the Traversal Engine:
// forward/reverse-dep computation, transitive closure, and path
// enumeration over the filtered graph.
//
// The frontier-expansion shape drives a per-node callback across a
// growing frontier and records a predecessor pointer the first time a
// node is discovered, so the path back to a source can be
// reconstructed. A weighted variant of this problem calls for Dijkstra
// with a distance-ordered heap; our graph is unweighted, so the heap
// collapses to a plain FIFO/LIFO frontier, but the discovered-via-
// predecessor bookkeeping is the same idea.
package traversal

import (
	"context"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/internal/depfilter"
	"github.com/rieckegino/depquery/internal/materializer"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

// Engine is the Traversal Engine. It holds no state between calls beyond
// its collaborators; every method is safe to call repeatedly, though the
// engine as a whole is single-shot per query.
type Engine struct {
	adapter      *adapter.Adapter
	materializer *materializer.Materializer
	filter       target.DependencyFilter
}

// New builds an Engine that filters forward edges under filter.
func New(a *adapter.Adapter, m *materializer.Materializer, filter target.DependencyFilter) *Engine {
	return &Engine{adapter: a, materializer: m, filter: filter}
}

func keysFor(targets []*target.Target) []graphkey.GraphKey {
	keys := make([]graphkey.GraphKey, len(targets))
	for i, t := range targets {
		keys[i] = adapter.TraversalKey(t.Label)
	}
	return keys
}

// FwdDeps returns the filtered forward dependencies of targets.
func (e *Engine) FwdDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	keys := keysFor(targets)
	raw, err := e.adapter.DirectDeps(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "fwdDeps: fetching direct deps").Err()
	}

	missing := 0
	seen := stringset.New(0)
	var depKeys []graphkey.GraphKey
	for _, k := range keys {
		edges, ok := raw[k]
		if !ok {
			missing++
			continue
		}
		for _, dk := range edges {
			if seen.Add(dk.String()) {
				depKeys = append(depKeys, dk)
			}
		}
	}
	if missing > 0 {
		logging.Warningf(ctx, "fwdDeps: %d of %d source targets were missing from the raw-deps map (cycle or out-of-universe)", missing, len(keys))
	}

	depTargets, err := e.materializer.Materialize(ctx, depKeys)
	if err != nil {
		return nil, errors.Annotate(err, "fwdDeps: materializing dependency targets").Err()
	}

	var out []*target.Target
	for _, src := range targets {
		edges, ok := raw[adapter.TraversalKey(src.Label)]
		if !ok {
			continue
		}
		for _, dk := range edges {
			dt, ok := depTargets[dk]
			if !ok {
				continue
			}
			if depfilter.Permits(src, e.filter, dt.Label) {
				out = append(out, dt)
			}
		}
	}
	return out, nil
}

// ReverseDeps returns the filtered reverse dependencies of targets.
func (e *Engine) ReverseDeps(ctx context.Context, targets []*target.Target) ([]*target.Target, error) {
	keys := keysFor(targets)
	raw, err := e.adapter.ReverseDeps(ctx, keys)
	if err != nil {
		return nil, errors.Annotate(err, "reverseDeps: fetching reverse deps").Err()
	}

	origLabels := stringset.New(len(targets))
	for _, t := range targets {
		origLabels.Add(t.Label.String())
	}

	seen := stringset.New(0)
	var parentKeys []graphkey.GraphKey
	for _, edges := range raw {
		for _, pk := range edges {
			if seen.Add(pk.String()) {
				parentKeys = append(parentKeys, pk)
			}
		}
	}

	parentTargets, err := e.materializer.Materialize(ctx, parentKeys)
	if err != nil {
		return nil, errors.Annotate(err, "reverseDeps: materializing parent targets").Err()
	}

	visited := stringset.New(0)
	var out []*target.Target
	for _, pk := range parentKeys {
		pt, ok := parentTargets[pk]
		if !ok {
			continue
		}
		if !visited.Add(pt.Label.String()) {
			continue
		}
		if pt.IsRule() && e.filter != target.AllDeps {
			allowed := depfilter.AllowedLabels(pt.Rule, e.filter)
			if !intersects(allowed, origLabels) {
				continue
			}
		}
		out = append(out, pt)
	}
	return out, nil
}

func intersects(a, b stringset.Set) bool {
	hit := false
	a.Iter(func(s string) bool {
		if b.Has(s) {
			hit = true
			return false
		}
		return true
	})
	return hit
}

// TransitiveClosure computes the forward-filtered transitive closure of
// seeds via layered BFS.
func (e *Engine) TransitiveClosure(ctx context.Context, seeds []*target.Target) ([]*target.Target, error) {
	visited := map[label.Label]*target.Target{}
	frontier := map[label.Label]*target.Target{}
	for _, t := range seeds {
		if _, ok := visited[t.Label]; !ok {
			frontier[t.Label] = t
		}
	}

	for len(frontier) > 0 {
		frontierList := make([]*target.Target, 0, len(frontier))
		for _, t := range frontier {
			frontierList = append(frontierList, t)
		}
		for _, t := range frontierList {
			visited[t.Label] = t
		}

		next, err := e.FwdDeps(ctx, frontierList)
		if err != nil {
			return nil, errors.Annotate(err, "transitiveClosure").Err()
		}

		newFrontier := map[label.Label]*target.Target{}
		for _, t := range next {
			if _, ok := visited[t.Label]; !ok {
				newFrontier[t.Label] = t
			}
		}
		frontier = newFrontier
	}

	out := make([]*target.Target, 0, len(visited))
	for _, t := range visited {
		out = append(out, t)
	}
	return out, nil
}

// NodesOnPath reconstructs a path from `from` to `to` over the
// forward-filtered graph, using a predecessor map recorded on first
// discovery during a LIFO frontier walk. It returns the path as an
// ordered slice from -> ... -> to.
//
// When `to` is unreachable, NodesOnPath returns (nil, false) rather
// than an ambiguous empty set: `{from}` is itself a valid one-element
// path when from == to, so an empty slice could otherwise be misread as
// "no path" when it really means "trivial path of length one with from
// dropped".
func (e *Engine) NodesOnPath(ctx context.Context, from, to *target.Target) ([]*target.Target, bool, error) {
	if from.Label == to.Label {
		return []*target.Target{from}, true, nil
	}

	type frame struct {
		node *target.Target
		from *target.Target
	}
	prev := map[label.Label]*target.Target{}
	visited := stringset.New(0)
	visited.Add(from.Label.String())

	stack := []frame{{node: from}}
	found := false

	for len(stack) > 0 && !found {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		deps, err := e.FwdDeps(ctx, []*target.Target{cur.node})
		if err != nil {
			return nil, false, errors.Annotate(err, "nodesOnPath").Err()
		}
		for _, d := range deps {
			if !visited.Add(d.Label.String()) {
				continue
			}
			prev[d.Label] = cur.node
			if d.Label == to.Label {
				found = true
				break
			}
			stack = append(stack, frame{node: d})
		}
	}

	if !found {
		return nil, false, nil
	}

	var chain []*target.Target
	cur := to
	for {
		chain = append(chain, cur)
		if cur.Label == from.Label {
			break
		}
		p, ok := prev[cur.Label]
		if !ok {
			break
		}
		cur = p
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, true, nil
}

// AllPathsClosure returns the subgraph reachable forward from any of
// from that can also reach any of to: transitiveClosure(from) ∩
// reverseTransitiveClosure(to). It is an allpaths-style addition that
// reuses FwdDeps/ReverseDeps rather than introducing new graph access
// patterns.
func (e *Engine) AllPathsClosure(ctx context.Context, from, to []*target.Target) ([]*target.Target, error) {
	fwd, err := e.TransitiveClosure(ctx, from)
	if err != nil {
		return nil, errors.Annotate(err, "allPathsClosure: forward closure").Err()
	}

	bwd := map[label.Label]*target.Target{}
	frontier := map[label.Label]*target.Target{}
	for _, t := range to {
		frontier[t.Label] = t
	}
	for len(frontier) > 0 {
		frontierList := make([]*target.Target, 0, len(frontier))
		for _, t := range frontier {
			frontierList = append(frontierList, t)
		}
		for _, t := range frontierList {
			bwd[t.Label] = t
		}
		next, err := e.ReverseDeps(ctx, frontierList)
		if err != nil {
			return nil, errors.Annotate(err, "allPathsClosure: backward closure").Err()
		}
		newFrontier := map[label.Label]*target.Target{}
		for _, t := range next {
			if _, ok := bwd[t.Label]; !ok {
				newFrontier[t.Label] = t
			}
		}
		frontier = newFrontier
	}

	var out []*target.Target
	for _, t := range fwd {
		if _, ok := bwd[t.Label]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// BuildTransitiveClosure is the error-checking probe: it does not
// compute a closure (the graph is already fully loaded by the time a
// query runs), it only scans the traversal-key values of targets for
// recovered or unrecovered loading errors and reports them through
// sink.
func (e *Engine) BuildTransitiveClosure(ctx context.Context, targets []*target.Target, sink ErrSink) error {
	keys := keysFor(targets)

	successful, err := e.adapter.SuccessfulValues(ctx, keys)
	if err != nil {
		return errors.Annotate(err, "buildTransitiveClosure: fetching successful values").Err()
	}

	var missingKeys []graphkey.GraphKey
	for _, k := range keys {
		if _, ok := successful[k]; !ok {
			missingKeys = append(missingKeys, k)
		}
	}

	for k, v := range successful {
		ttv, ok := v.(*walkgraph.TransitiveTraversalValue)
		if !ok || !ttv.HasError {
			continue
		}
		sink.BuildFileError(k, ttv.FirstErrorMessage)
	}

	if len(missingKeys) == 0 {
		return nil
	}
	exceptions, err := e.adapter.MissingAndExceptions(ctx, missingKeys)
	if err != nil {
		return errors.Annotate(err, "buildTransitiveClosure: fetching missing/exceptions").Err()
	}
	for _, k := range missingKeys {
		exc, ok := exceptions[k]
		switch {
		case !ok || exc == nil:
			sink.DoesNotExist(k)
		default:
			sink.BuildFileError(k, exc.Error())
		}
	}
	return nil
}

// ErrSink is the minimal surface BuildTransitiveClosure needs from the
// caller's event handler; the root depquery package provides an
// implementation backed by events.Handler.
type ErrSink interface {
	BuildFileError(key graphkey.GraphKey, message string)
	DoesNotExist(key graphkey.GraphKey)
}
