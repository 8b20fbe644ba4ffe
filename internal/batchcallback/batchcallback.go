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

// Package batchcallback implements a Label-deduplicating buffer that
// flushes to a downstream sink in fixed-size batches.
package batchcallback

import (
	"sync"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/rieckegino/depquery/target"
)

// Sink is the downstream consumer callback. It must be safe under
// concurrent calls.
type Sink func(batch []*target.Target) error

// Callback buffers targets, deduplicated on the fly by a shared
// Label-keyed uniquifier, and forwards to sink whenever the buffer
// reaches threshold. It is entered concurrently by resolver workers, so
// every call to Process is made under a single mutex around the whole
// method.
type Callback struct {
	sink      Sink
	threshold int

	mu       sync.Mutex
	buf      []*target.Target
	seen     stringset.Set
	flushed  bool
}

// New builds a Callback that flushes to sink every threshold targets.
func New(sink Sink, threshold int) *Callback {
	return &Callback{
		sink:      sink,
		threshold: threshold,
		seen:      stringset.New(0),
	}
}

// Process deduplicates and buffers targets, flushing whenever the
// buffer reaches the threshold. Invalid to call after Flush: a flushed
// callback is unreusable.
func (c *Callback) Process(targets []*target.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flushed {
		return errors.Reason("batchcallback: Process called after Flush").Err()
	}

	for _, t := range targets {
		if c.seen.Add(t.Label.String()) {
			c.buf = append(c.buf, t)
		}
	}

	for len(c.buf) >= c.threshold {
		if err := c.flushBatch(c.threshold); err != nil {
			return err
		}
	}
	return nil
}

// Flush forwards any residual buffered targets and marks the callback
// unreusable.
func (c *Callback) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flushed {
		return nil
	}
	c.flushed = true
	if len(c.buf) == 0 {
		return nil
	}
	return c.flushBatch(len(c.buf))
}

// flushBatch must be called with c.mu held.
func (c *Callback) flushBatch(n int) error {
	batch := c.buf[:n]
	c.buf = c.buf[n:]
	if err := c.sink(batch); err != nil {
		return errors.Annotate(err, "batchcallback: sink rejected a batch of %d targets", len(batch)).Err()
	}
	return nil
}
