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

// Package materializer converts a batch of TransitiveTraversal keys
// into Targets: it groups them by package, fetches each package's value
// in one graph round trip, and extracts the named targets — tolerant of
// targets that turn out to be absent (cycle, universe filter).
package materializer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
)

// Materializer extracts target.Targets from TransitiveTraversal keys.
type Materializer struct {
	adapter *adapter.Adapter
}

// New builds a Materializer over adapter a.
func New(a *adapter.Adapter) *Materializer {
	return &Materializer{adapter: a}
}

// Materialize resolves keys to their Targets. Non-TransitiveTraversal
// keys are skipped. A key
// whose package failed to load, or whose target doesn't exist within an
// otherwise-successful package, is simply absent from the result — that
// is a normal outcome, not an error.
func (m *Materializer) Materialize(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]*target.Target, error) {
	// Group labels by package so each package is fetched exactly once,
	// regardless of how many of its targets were requested.
	byPackage := map[label.PackageID][]label.Label{}
	keyForLabel := map[label.Label]graphkey.GraphKey{}
	for _, k := range keys {
		tk, ok := k.(graphkey.TransitiveTraversalKey)
		if !ok {
			continue
		}
		pkg := tk.Label.Package()
		byPackage[pkg] = append(byPackage[pkg], tk.Label)
		keyForLabel[tk.Label] = k
	}

	pkgKeys := make([]graphkey.GraphKey, 0, len(byPackage))
	for pkg := range byPackage {
		pkgKeys = append(pkgKeys, graphkey.PackageKey{Package: pkg})
	}

	pkgValues, err := m.adapter.SuccessfulValues(ctx, pkgKeys)
	if err != nil {
		return nil, errors.Annotate(err, "materializing %d targets across %d packages", len(keys), len(pkgKeys)).Err()
	}

	// The single SuccessfulValues round trip above is the expensive part;
	// extracting targets out of each already-fetched package is pure
	// in-memory work, so it fans out one goroutine per package rather
	// than staying sequential (useful once a batch spans many packages).
	out := make(map[graphkey.GraphKey]*target.Target, len(keys))
	var mu sync.Mutex
	eg, _ := errgroup.WithContext(ctx)
	for pkg, labels := range byPackage {
		pkg, labels := pkg, labels
		v, ok := pkgValues[graphkey.PackageKey{Package: pkg}]
		if !ok {
			// Package failed to load, is missing, or is cycle-broken: none
			// of its requested targets can be materialized.
			continue
		}
		eg.Go(func() error {
			p, ok := v.(*target.Package)
			if !ok {
				return errors.Reason("package value for %s has unexpected type %T", pkg, v).Err()
			}
			resolved := make(map[graphkey.GraphKey]*target.Target, len(labels))
			for _, l := range labels {
				t, ok := p.Target(l.Name)
				if !ok {
					// NoSuchTargetException equivalent: dropped silently.
					continue
				}
				resolved[keyForLabel[l]] = t
			}
			mu.Lock()
			for k, t := range resolved {
				out[k] = t
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Annotate(err, "materializing %d targets across %d packages", len(keys), len(pkgKeys)).Err()
	}
	return out, nil
}
