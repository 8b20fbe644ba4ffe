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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics the Query Driver exports: how many evaluations ran, how they
// resolved, and how long they took.
var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depquery_evaluations_total",
		Help: "Total Evaluate calls by outcome",
	}, []string{"outcome"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depquery_evaluation_duration_seconds",
		Help:    "Evaluate call duration",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10},
	})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depquery_batches_total",
		Help: "Total deduplicated result batches forwarded to consumers",
	})

	targetsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depquery_targets_emitted_total",
		Help: "Total targets forwarded to consumers across all batches",
	})
)

// observeEvaluation records one Evaluate call's outcome and elapsed
// duration since started.
func observeEvaluation(started time.Time, outcome string) {
	evaluationDuration.Observe(time.Since(started).Seconds())
	evaluationsTotal.WithLabelValues(outcome).Inc()
}

// observeBatch records one batch forwarded to a consumer.
func observeBatch(size int) {
	batchesTotal.Inc()
	targetsEmittedTotal.Add(float64(size))
}
