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

package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectingHandlerTracksErrors(t *testing.T) {
	h := NewCollectingHandler(context.Background())
	assert.False(t, h.HasErrors())

	h.Handle(Event{Severity: Info, Message: "loading"})
	assert.False(t, h.HasErrors())

	h.Handle(Event{Severity: Warning, Message: "cycle"})
	assert.False(t, h.HasErrors())

	h.Handle(Event{Severity: Error, Message: "boom"})
	assert.True(t, h.HasErrors())

	assert.Len(t, h.Events(), 3)
}

func TestCollectingHandlerResetErrors(t *testing.T) {
	h := NewCollectingHandler(context.Background())
	h.Handle(Event{Severity: Error, Message: "boom"})
	assert.True(t, h.HasErrors())

	h.ResetErrors()
	assert.False(t, h.HasErrors())
	assert.Empty(t, h.Events())
}

func TestCollectingHandlerConcurrentUse(t *testing.T) {
	h := NewCollectingHandler(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sev := Info
			if i%10 == 0 {
				sev = Error
			}
			h.Handle(Event{Severity: sev, Message: "concurrent"})
		}(i)
	}
	wg.Wait()
	assert.Len(t, h.Events(), 50)
	assert.True(t, h.HasErrors())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "info", Info.String())
}
