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

// Package fakegraph is a reference WalkableGraph backed by BadgerDB.
// Graph construction, persistence, and invalidation are out of this
// engine's scope, so this package is demo/test plumbing rather than a
// core component. Callers populate a Builder with fixture data, then
// Build it into a queryable Graph; cmd/depquery and the package's own
// tests both use it in place of a real build-system graph.
package fakegraph

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"go.chromium.org/luci/common/errors"
)

// Config mirrors the options this engine's ambient stack actually
// exercises out of Badger's much larger surface: in-memory vs.
// on-disk, and write durability.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is true.
	Path string
	// InMemory opens a transient, non-persistent database, the mode
	// this module's own tests use exclusively.
	InMemory bool
	// SyncWrites trades write latency for durability.
	SyncWrites bool
}

// open opens a *badger.DB under cfg, with Badger's own logging
// disabled: this module routes everything through
// go.chromium.org/luci/common/logging instead.
func open(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.Reason("fakegraph: Path is required for a persistent database").Err()
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Annotate(err, "fakegraph: opening badger database").Err()
	}
	return db, nil
}

// withReadTxn runs fn in a read-only transaction.
func withReadTxn(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Annotate(err, "fakegraph: context canceled before read").Err()
	}
	txn := db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// withTxn runs fn in a read-write transaction, committing iff fn
// succeeds.
func withTxn(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Annotate(err, "fakegraph: context canceled before write").Err()
	}
	txn := db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}
