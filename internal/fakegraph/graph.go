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
	stderrors "errors"

	badger "github.com/dgraph-io/badger/v4"
	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/graphkey"
)

const (
	prefixNode = "n:"
	prefixFwd  = "f:"
	prefixRev  = "r:"
	prefixVal  = "v:"
	prefixExc  = "e:"
)

// Graph is a WalkableGraph (walkgraph.WalkableGraph) backed by a
// BadgerDB snapshot a Builder produced. It never mutates once built:
// the core engine's only access pattern is read-only batched lookups.
type Graph struct {
	db *badger.DB
}

// Close releases the underlying database. Callers that built the
// graph from an on-disk path are responsible for calling this; graph
// lifecycle management is out of this engine's scope.
func (g *Graph) Close() error {
	return g.db.Close()
}

func (g *Graph) DirectDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error) {
	return g.fetchEdges(ctx, prefixFwd, keys)
}

func (g *Graph) ReverseDeps(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error) {
	return g.fetchEdges(ctx, prefixRev, keys)
}

func (g *Graph) fetchEdges(ctx context.Context, prefix string, keys []graphkey.GraphKey) (map[graphkey.GraphKey][]graphkey.GraphKey, error) {
	out := make(map[graphkey.GraphKey][]graphkey.GraphKey, len(keys))
	err := withReadTxn(ctx, g.db, func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(badgerKey(prefix, k))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var edges []graphkey.GraphKey
			if err := item.Value(func(val []byte) error {
				decoded, err := decodeKeys(val)
				if err != nil {
					return err
				}
				edges = decoded
				return nil
			}); err != nil {
				return err
			}
			out[k] = edges
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "fakegraph: fetching %d edge lists under %q", len(keys), prefix).Err()
	}
	return out, nil
}

func (g *Graph) SuccessfulValues(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]any, error) {
	out := make(map[graphkey.GraphKey]any, len(keys))
	err := withReadTxn(ctx, g.db, func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(badgerKey(prefixVal, k))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var v any
			if err := item.Value(func(val []byte) error {
				decoded, err := decodeValue(val)
				if err != nil {
					return err
				}
				v = decoded
				return nil
			}); err != nil {
				return err
			}
			out[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "fakegraph: fetching %d successful values", len(keys)).Err()
	}
	return out, nil
}

func (g *Graph) MissingAndExceptions(ctx context.Context, keys []graphkey.GraphKey) (map[graphkey.GraphKey]error, error) {
	out := make(map[graphkey.GraphKey]error, len(keys))
	err := withReadTxn(ctx, g.db, func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(badgerKey(prefixExc, k))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				out[k] = nil
				continue
			}
			if err != nil {
				return err
			}
			var msg string
			if err := item.Value(func(val []byte) error {
				msg = string(val)
				return nil
			}); err != nil {
				return err
			}
			out[k] = errors.Reason("%s", msg).Err()
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "fakegraph: fetching %d missing/exceptions", len(keys)).Err()
	}
	return out, nil
}

func (g *Graph) Value(ctx context.Context, key graphkey.GraphKey) (any, bool, error) {
	values, err := g.SuccessfulValues(ctx, []graphkey.GraphKey{key})
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (g *Graph) Exception(ctx context.Context, key graphkey.GraphKey) (error, bool) {
	m, err := g.MissingAndExceptions(ctx, []graphkey.GraphKey{key})
	if err != nil {
		return err, true
	}
	exc, ok := m[key]
	return exc, ok && exc != nil
}

func (g *Graph) Exists(ctx context.Context, key graphkey.GraphKey) (bool, error) {
	var exists bool
	err := withReadTxn(ctx, g.db, func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(prefixNode, key))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, errors.Annotate(err, "fakegraph: checking existence of %s", key).Err()
	}
	return exists, nil
}
