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

// Package events defines the EventHandler collaborator and
// a default implementation that accumulates events for the keep-going
// policy while also forwarding them to
// go.chromium.org/luci/common/logging, the ambient logging stack this
// module follows throughout.
package events

import (
	"context"
	"sync"

	"go.chromium.org/luci/common/logging"
)

// Severity classifies an Event the way Bazel's own event bus does:
// errors accumulate toward the keep-going/abort decision, warnings and
// info never do.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Event is one reported occurrence: a recovered loading error, a
// pattern-parse failure, a cycle warning, and so on.
type Event struct {
	Severity Severity
	Message  string
}

// Handler is the EventHandler collaborator: it receives
// events, and can report and reset whether any Error-severity event has
// been seen.
type Handler interface {
	Handle(Event)
	HasErrors() bool
	ResetErrors()
}

// CollectingHandler is a thread-safe Handler that accumulates events (for
// later inspection, e.g. by tests or a CLI summary) and mirrors every
// event to ctx's logger at the matching level.
type CollectingHandler struct {
	ctx context.Context

	mu       sync.Mutex
	events   []Event
	hasError bool
}

// NewCollectingHandler returns a Handler that logs through ctx.
func NewCollectingHandler(ctx context.Context) *CollectingHandler {
	return &CollectingHandler{ctx: ctx}
}

// Handle implements Handler. Safe for concurrent calls; the event sink
// is treated as thread-safe by contract.
func (h *CollectingHandler) Handle(e Event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	if e.Severity == Error {
		h.hasError = true
	}
	h.mu.Unlock()

	switch e.Severity {
	case Error:
		logging.Errorf(h.ctx, "%s", e.Message)
	case Warning:
		logging.Warningf(h.ctx, "%s", e.Message)
	default:
		logging.Infof(h.ctx, "%s", e.Message)
	}
}

// HasErrors implements Handler.
func (h *CollectingHandler) HasErrors() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasError
}

// ResetErrors implements Handler: it clears prior errors on the event
// sink at the start of each evaluate call.
func (h *CollectingHandler) ResetErrors() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
	h.hasError = false
}

// Events returns a snapshot of everything accumulated since the last
// ResetErrors, in order.
func (h *CollectingHandler) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}
