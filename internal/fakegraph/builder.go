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

package fakegraph

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/rieckegino/depquery/events"
	"github.com/rieckegino/depquery/graphkey"
	"github.com/rieckegino/depquery/walkgraph"
)

// Builder accumulates fixture data — forward edges, values, and
// exceptions — before committing it into a queryable Graph. It models
// what a real build-system's universe-loading phase would have
// already computed; this package never parses BUILD files or runs a
// loading phase itself.
type Builder struct {
	forward    map[graphkey.GraphKey][]graphkey.GraphKey
	values     map[graphkey.GraphKey]any
	exceptions map[graphkey.GraphKey]string
	cycle      bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		forward:    map[graphkey.GraphKey][]graphkey.GraphKey{},
		values:     map[graphkey.GraphKey]any{},
		exceptions: map[graphkey.GraphKey]string{},
	}
}

// AddEdge records a forward edge from -> to, implicitly marking both
// endpoints present in the graph.
func (b *Builder) AddEdge(from, to graphkey.GraphKey) *Builder {
	if _, ok := b.forward[from]; !ok {
		b.forward[from] = nil
	}
	b.forward[from] = append(b.forward[from], to)
	if _, ok := b.forward[to]; !ok {
		b.forward[to] = nil
	}
	return b
}

// AddValue records key's successfully evaluated value.
func (b *Builder) AddValue(key graphkey.GraphKey, value any) *Builder {
	if _, ok := b.forward[key]; !ok {
		b.forward[key] = nil
	}
	b.values[key] = value
	return b
}

// SetBlacklist records the universe's blacklisted package-path
// prefixes and doubles as the fixture's "root
// value" marker Factory.UniverseKey points at:
// every universe this Builder produces must call SetBlacklist exactly
// once, even with an empty prefixes slice, for the single-root-value
// check PrepareAndGet's caller runs on UniverseKey to succeed.
func (b *Builder) SetBlacklist(scope []string, parserPrefix string, prefixes []string) *Builder {
	key := graphkey.BlacklistPrefixesKey{Universe: canonicalUniverse(scope, parserPrefix)}
	return b.AddValue(key, &walkgraph.BlacklistPrefixesValue{Prefixes: prefixes})
}

// AddException records key as present in the graph but failed, with
// message as its recorded exception text.
func (b *Builder) AddException(key graphkey.GraphKey, message string) *Builder {
	if _, ok := b.forward[key]; !ok {
		b.forward[key] = nil
	}
	b.exceptions[key] = message
	return b
}

// MarkCycle flags the universe as containing a cycle, the outcome
// PrepareAndGet reports via EvaluationResult.HasCycle. A real loader
// would detect this by strongly-connected-component analysis during
// evaluation; since this package never performs evaluation, fixtures
// declare it directly.
func (b *Builder) MarkCycle() *Builder {
	b.cycle = true
	return b
}

// Build commits the accumulated fixture into a Graph backed by a fresh
// BadgerDB, computing reverse edges from the recorded forward edges.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Graph, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, errors.Annotate(err, "fakegraph: building graph").Err()
	}

	reverse := map[graphkey.GraphKey][]graphkey.GraphKey{}
	for from, tos := range b.forward {
		if _, ok := reverse[from]; !ok {
			reverse[from] = nil
		}
		for _, to := range tos {
			reverse[to] = append(reverse[to], from)
		}
	}

	writeErr := withTxn(ctx, db, func(txn *badger.Txn) error {
		for k := range b.forward {
			if err := txn.Set(badgerKey(prefixNode, k), []byte{1}); err != nil {
				return err
			}
		}
		for k, edges := range b.forward {
			enc, err := encodeKeys(edges)
			if err != nil {
				return err
			}
			if err := txn.Set(badgerKey(prefixFwd, k), enc); err != nil {
				return err
			}
		}
		for k, edges := range reverse {
			enc, err := encodeKeys(edges)
			if err != nil {
				return err
			}
			if err := txn.Set(badgerKey(prefixRev, k), enc); err != nil {
				return err
			}
		}
		for k, v := range b.values {
			enc, err := encodeValue(v)
			if err != nil {
				return err
			}
			if err := txn.Set(badgerKey(prefixVal, k), enc); err != nil {
				return err
			}
		}
		for k, msg := range b.exceptions {
			if err := txn.Set(badgerKey(prefixExc, k), []byte(msg)); err != nil {
				return err
			}
		}
		return nil
	})
	if writeErr != nil {
		db.Close()
		return nil, errors.Annotate(writeErr, "fakegraph: committing fixture").Err()
	}

	return &Graph{db: db}, nil
}

// Factory implements walkgraph.WalkableGraphFactory over a Builder
// that has already been Built once. PrepareAndGet is deliberately
// idempotent over a pre-committed fixture: this package never performs
// an actual loading phase.
type Factory struct {
	graph    *Graph
	hasCycle bool
}

// NewFactory wraps a built Graph for use as a WalkableGraphFactory.
// hasCycle must match what the fixture's Builder recorded via
// MarkCycle.
func NewFactory(g *Graph, hasCycle bool) *Factory {
	return &Factory{graph: g, hasCycle: hasCycle}
}

// PrepareAndGet returns the pre-built graph, logging the nominal
// universe-loading steps a real factory would report through sink.
func (f *Factory) PrepareAndGet(ctx context.Context, universeScope []string, parserPrefix string, threads int, sink events.Handler) (walkgraph.EvaluationResult, error) {
	logging.Infof(ctx, "fakegraph: preparing universe %v under prefix %q with %d threads", universeScope, parserPrefix, threads)
	if f.hasCycle {
		sink.Handle(events.Event{Severity: events.Warning, Message: "universe contains a cycle"})
	}
	return walkgraph.EvaluationResult{Graph: f.graph, HasCycle: f.hasCycle}, nil
}

// UniverseKey returns the graph key whose presence PrepareAndGet's
// caller treats as the "one root value" signal.
// This reference graph ties that to the per-universe
// BlacklistPrefixesKey, which Build writes only if SetBlacklist was
// called.
func (f *Factory) UniverseKey(scope []string, prefix string) graphkey.GraphKey {
	return graphkey.BlacklistPrefixesKey{Universe: canonicalUniverse(scope, prefix)}
}

func canonicalUniverse(scope []string, prefix string) string {
	return prefix + "|" + strings.Join(scope, ",")
}
