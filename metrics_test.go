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

package depquery

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveEvaluationIncrementsCounterByOutcome(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues("success"))
	observeEvaluation(time.Now(), "success")
	after := testutil.ToFloat64(evaluationsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestObserveEvaluationRecordsDuration(t *testing.T) {
	countBefore := testutil.CollectAndCount(evaluationDuration)
	observeEvaluation(time.Now().Add(-50*time.Millisecond), "failure")
	countAfter := testutil.CollectAndCount(evaluationDuration)
	assert.Equal(t, countBefore+1, countAfter)
}

func TestObserveBatchIncrementsBatchAndTargetCounters(t *testing.T) {
	batchesBefore := testutil.ToFloat64(batchesTotal)
	targetsBefore := testutil.ToFloat64(targetsEmittedTotal)

	observeBatch(3)

	assert.Equal(t, batchesBefore+1, testutil.ToFloat64(batchesTotal))
	assert.Equal(t, targetsBefore+3, testutil.ToFloat64(targetsEmittedTotal))
}
