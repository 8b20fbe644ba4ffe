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

// Package patternresolver resolves target-pattern strings into target
// streams against the universe, honoring the universe's blacklisted
// package prefixes. Pattern parsing itself is out of scope; this
// package consumes a TargetPatternEvaluator collaborator.
package patternresolver

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/parallel"

	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/target"
)

// FilteringPolicy mirrors TargetPatternEvaluator.DEFAULT_FILTERING_POLICY:
// a predicate over targets a resolved pattern must satisfy to be
// included, beyond just matching the pattern text.
type FilteringPolicy func(*target.Target) bool

// DefaultFilteringPolicy accepts every target; callers can install a
// stricter one (e.g. excluding manual-tagged targets) the way Bazel's
// query mode does.
func DefaultFilteringPolicy(*target.Target) bool { return true }

// Evaluator is the out-of-scope collaborator that turns a pattern string
// plus its exclusions into a stream of targets.
type Evaluator interface {
	// Eval streams every target matching pattern, excluding any package
	// whose path has one of excludes as a prefix, directly to cb without
	// intermediate accumulation.
	Eval(ctx context.Context, pattern string, excludes stringset.Set, cb func([]*target.Target) error) error
}

// BlacklistSource reads the universe's blacklisted package-path
// prefixes from the graph, keyed by
// graphkey.BlacklistPrefixesKey.
type BlacklistSource interface {
	Blacklist(ctx context.Context, key graphkey.GraphKey) (stringset.Set, error)
}

// Bridge resolves patterns against the universe.
type Bridge struct {
	evaluator    Evaluator
	blacklist    BlacklistSource
	universeKey  graphkey.GraphKey
	parserPrefix string
	threads      int

	once           sync.Once
	onceErr        error
	cachedPrefixes stringset.Set
}

// New builds a Bridge. threads sizes the worker pool used to enumerate
// patterns in parallel.
func New(ev Evaluator, bl BlacklistSource, universeKey graphkey.GraphKey, parserPrefix string, threads int) *Bridge {
	return &Bridge{evaluator: ev, blacklist: bl, universeKey: universeKey, parserPrefix: parserPrefix, threads: threads}
}

// memoizedBlacklist reads the blacklist from the graph on first use and
// caches the (immutable) result for the lifetime of this Bridge.
// Thread-safe publication is provided by sync.Once.
func (b *Bridge) memoizedBlacklist(ctx context.Context) (stringset.Set, error) {
	b.once.Do(func() {
		b.cachedPrefixes, b.onceErr = b.blacklist.Blacklist(ctx, b.universeKey)
	})
	return b.cachedPrefixes, b.onceErr
}

// TargetsMatchingPattern resolves pattern and streams results to cb.
// Every evaluator error, a parse failure or a cancellation alike, is
// returned to the caller annotated with the pattern; no event is
// emitted for it.
func (b *Bridge) TargetsMatchingPattern(ctx context.Context, pattern string, cb func([]*target.Target) error) error {
	blacklist, err := b.memoizedBlacklist(ctx)
	if err != nil {
		return errors.Annotate(err, "resolving pattern %q: reading universe blacklist", pattern).Err()
	}

	excludes := stringset.New(blacklist.Len())
	blacklist.Iter(func(s string) bool {
		excludes.Add(s)
		return true
	})
	// A pattern's own excluded-subdirectory syntax (e.g. "//foo/... -
	// //foo/excluded/...") is expressed as "-//path" suffixes the
	// evaluator itself understands; here we only merge in the
	// universe-wide blacklist, never mutate the cached set in place.
	absolutized := absolutize(pattern, b.parserPrefix)

	if err := b.evaluator.Eval(ctx, absolutized, excludes, cb); err != nil {
		if stderrors.Is(err, context.Canceled) {
			return errors.Annotate(err, "resolving pattern %q: canceled", pattern).Err()
		}
		return errors.Annotate(err, "resolving pattern %q", pattern).Err()
	}
	return nil
}

// ResolveAll resolves patterns concurrently, bounded by b.threads, and
// streams every result to cb: package enumeration across distinct
// patterns runs in parallel, funneling into cb, which (in practice) is
// a batchcallback.Callback wrapping its own mutex.
func (b *Bridge) ResolveAll(ctx context.Context, patterns []string, cb func([]*target.Target) error) error {
	return parallel.WorkPool(b.threads, func(tasks chan<- func() error) {
		for _, p := range patterns {
			p := p
			tasks <- func() error {
				if err := b.TargetsMatchingPattern(ctx, p, cb); err != nil {
					logging.Errorf(ctx, "resolving pattern %q: %s", p, err)
					return err
				}
				return nil
			}
		}
	})
}

func absolutize(pattern, parserPrefix string) string {
	if parserPrefix == "" || strings.HasPrefix(pattern, "//") || strings.HasPrefix(pattern, "@") {
		return pattern
	}
	return strings.TrimSuffix(parserPrefix, "/") + "/" + pattern
}
