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

// Package rbuildfiles implements the rbuildfiles Engine:
// given file paths, find their containing packages via iterative
// ancestor-directory lookup, then walk reverse edges across
// PackageLookup/TransitiveTraversal nodes to collect depending Packages,
// emitted as their BUILD-file targets.
package rbuildfiles

import (
	"context"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/internal/adapter"
	"github.com/rieckegino/depquery/label"
	"github.com/rieckegino/depquery/target"
	"github.com/rieckegino/depquery/walkgraph"
)

// ExternalRepoPackage is the sentinel package every other package
// implicitly depends on;
// supplied by the caller since its exact identity is graph-specific.
var ExternalRepoPackage = label.PackageID{Repository: "", PkgPath: ""}

// workspaceFile is the filename that triggers the external-package
// special case in candidateLookupKeys.
const workspaceFile = "WORKSPACE"

// Engine answers "which packages' build files transitively depend on
// this set of file paths?".
type Engine struct {
	adapter   *adapter.Adapter
	batchSize int
}

// New builds an Engine. batchSize should match the driver's batch
// threshold; both share one BatchSize constant.
func New(a *adapter.Adapter, batchSize int) *Engine {
	return &Engine{adapter: a, batchSize: batchSize}
}

// GetRBuildFiles runs the full algorithm, flushing BUILD-file targets to
// emit in fixed-size batches as they're discovered. It never emits a
// target whose package containsErrors.
func (e *Engine) GetRBuildFiles(ctx context.Context, paths []graphkey.RootedPath, emit func([]*target.Target) error) error {
	fileKeys, err := e.findFileKeys(ctx, paths)
	if err != nil {
		return errors.Annotate(err, "rbuildfiles: finding file keys").Err()
	}
	return e.reverseWalk(ctx, fileKeys, emit)
}

// findFileKeys walks each input path's ancestor directories iteratively
// until a package root is found for it.
func (e *Engine) findFileKeys(ctx context.Context, paths []graphkey.RootedPath) ([]graphkey.FileKey, error) {
	type origSet = map[graphkey.RootedPath]bool

	currentToOriginal := map[graphkey.RootedPath]origSet{}
	for _, p := range paths {
		currentToOriginal[p] = origSet{p: true}
	}

	var result []graphkey.FileKey

	for len(currentToOriginal) > 0 {
		lookupKeyToOrig := map[graphkey.PackageLookupKey]map[graphkey.RootedPath]origSet{}
		for current, origs := range currentToOriginal {
			for _, lk := range candidateLookupKeys(current) {
				if lookupKeyToOrig[lk] == nil {
					lookupKeyToOrig[lk] = map[graphkey.RootedPath]origSet{}
				}
				if lookupKeyToOrig[lk][current] == nil {
					lookupKeyToOrig[lk][current] = origSet{}
				}
				for o := range origs {
					lookupKeyToOrig[lk][current][o] = true
				}
			}
		}

		lookupKeys := make([]graphkey.GraphKey, 0, len(lookupKeyToOrig))
		for lk := range lookupKeyToOrig {
			lookupKeys = append(lookupKeys, lk)
		}

		values, err := e.adapter.SuccessfulValues(ctx, lookupKeys)
		if err != nil {
			return nil, errors.Annotate(err, "fetching package-lookup values for %d keys", len(lookupKeys)).Err()
		}

		resolvedCurrents := map[graphkey.RootedPath]bool{}
		for gk, byCurrent := range lookupKeyToOrig {
			v, ok := values[gk]
			if !ok {
				continue
			}
			lv, ok := v.(*walkgraph.PackageLookupValue)
			if !ok || !lv.PackageExists {
				continue
			}
			for current, origs := range byCurrent {
				for o := range origs {
					result = append(result, graphkey.FileKey{Path: graphkey.RootedPath{Root: lv.Root, Path: o.Path}})
				}
				resolvedCurrents[current] = true
			}
		}

		next := map[graphkey.RootedPath]origSet{}
		for current, origs := range currentToOriginal {
			if resolvedCurrents[current] {
				continue
			}
			parent, ok := current.Parent()
			if !ok {
				continue
			}
			if next[parent] == nil {
				next[parent] = origSet{}
			}
			for o := range origs {
				next[parent][o] = true
			}
		}
		currentToOriginal = next
	}

	return result, nil
}

// candidateLookupKeys implements the external-package special case:
// WORKSPACE at the tree root produces two lookup keys (the external
// package, and the empty-path main-repo package); everything else
// produces a single lookup key for its parent directory.
func candidateLookupKeys(current graphkey.RootedPath) []graphkey.PackageLookupKey {
	if current.Path == workspaceFile {
		return []graphkey.PackageLookupKey{
			{Package: ExternalRepoPackage},
			{Package: label.PackageID{Repository: current.Root, PkgPath: ""}},
		}
	}
	parent, ok := current.Parent()
	if !ok {
		return nil
	}
	return []graphkey.PackageLookupKey{{Package: label.PackageID{Repository: current.Root, PkgPath: parent.Path}}}
}

// reverseWalk runs a tag-aware reverse BFS from the file keys findFileKeys
// found, accepting Package-tagged parents,
// continuing through the external-package sentinel and everything that
// isn't a PackageLookup key, and dropping PackageLookup parents outright
// (they encode subpackage-existence edges, not build-file influence).
func (e *Engine) reverseWalk(ctx context.Context, fileKeys []graphkey.FileKey, emit func([]*target.Target) error) error {
	present := make([]graphkey.GraphKey, 0, len(fileKeys))
	for _, fk := range fileKeys {
		present = append(present, fk)
	}
	existing, err := e.adapter.SuccessfulValues(ctx, present)
	if err != nil {
		return errors.Annotate(err, "checking which file keys exist in the graph").Err()
	}

	frontier := make([]graphkey.GraphKey, 0, len(existing))
	for k := range existing {
		frontier = append(frontier, k)
	}

	packageResult := map[label.PackageID]bool{}
	visited := map[graphkey.GraphKey]bool{}
	for _, k := range frontier {
		visited[k] = true
	}

	flushIfFull := func() error {
		if len(packageResult) < e.batchSize {
			return nil
		}
		return e.flush(ctx, packageResult, emit)
	}

	for len(frontier) > 0 {
		parents, err := e.adapter.ReverseDeps(ctx, frontier)
		if err != nil {
			return errors.Annotate(err, "fetching reverse deps for %d keys", len(frontier)).Err()
		}

		var nextFrontier []graphkey.GraphKey
		for _, edges := range parents {
			for _, p := range edges {
				switch p.Kind() {
				case graphkey.KindPackage:
					pk := p.(graphkey.PackageKey)
					packageResult[pk.Package] = true
					if err := flushIfFull(); err != nil {
						return err
					}
					if visited[p] {
						continue
					}
					visited[p] = true
					if pk.Package == ExternalRepoPackage {
						// Every package depends on the external package, so its
						// own reverse-dep frontier must keep expanding.
						nextFrontier = append(nextFrontier, p)
					}
				case graphkey.KindPackageLookup:
					// Subpackage-existence edges: irrelevant, dropped.
					continue
				default:
					if visited[p] {
						continue
					}
					visited[p] = true
					nextFrontier = append(nextFrontier, p)
				}
			}
		}
		frontier = nextFrontier
	}

	logging.Debugf(ctx, "rbuildfiles: reverse walk visited %d graph nodes, found %d candidate packages", len(visited), len(packageResult))
	return e.flush(ctx, packageResult, emit)
}

// flush materializes the accumulated package set, drops packages that
// containsErrors, and emits their BUILD-file targets, then clears the
// set.
func (e *Engine) flush(ctx context.Context, packages map[label.PackageID]bool, emit func([]*target.Target) error) error {
	if len(packages) == 0 {
		return nil
	}
	keys := make([]graphkey.GraphKey, 0, len(packages))
	for pkg := range packages {
		keys = append(keys, graphkey.PackageKey{Package: pkg})
	}
	values, err := e.adapter.SuccessfulValues(ctx, keys)
	if err != nil {
		return errors.Annotate(err, "flushing %d packages", len(keys)).Err()
	}

	var batch []*target.Target
	for _, v := range values {
		p, ok := v.(*target.Package)
		if !ok || p.ContainsErrors {
			continue
		}
		batch = append(batch, &target.Target{Label: p.BuildFile, Kind: target.KindSourceFile})
	}
	for pkg := range packages {
		delete(packages, pkg)
	}
	if len(batch) == 0 {
		return nil
	}
	return emit(batch)
}
