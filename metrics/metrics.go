// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports pipeline counters and latencies in Prometheus
// format. Every method is safe to call on a nil *Recorder, so components can
// take an optional recorder without guarding each call.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/poiesic/pathways/ai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pathways"

// Oracle call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
)

// Recorder collects pipeline metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	oracleCalls    *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	reflection     *prometheus.CounterVec
	prefilterStage *prometheus.CounterVec
	validations    *prometheus.CounterVec
	searchLatency  prometheus.Histogram
	searchResults  prometheus.Histogram
	degraded       prometheus.Counter
}

// Config configures a Recorder.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewRecorder creates a Recorder and registers its collectors.
func NewRecorder(cfg Config) *Recorder {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{registry: registry}

	r.oracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total number of oracle calls by component and outcome",
		},
		[]string{"component", "outcome"},
	)

	r.oracleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Oracle call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"component"},
	)

	r.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fallbacks_total",
			Help:      "Total number of local fallbacks taken instead of an oracle judgment",
		},
		[]string{"component"},
	)

	r.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"kind"},
	)

	r.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"kind"},
	)

	r.reflection = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "reflection_decisions_total",
			Help:      "Total number of quality reflection decisions",
		},
		[]string{"decision"},
	)

	r.prefilterStage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "prefilter_stage_total",
			Help:      "Total number of prefilter runs by the ladder stage that produced candidates",
		},
		[]string{"stage"},
	)

	r.validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "validations_total",
			Help:      "Total number of code validations by code kind and source",
		},
		[]string{"kind", "source"},
	)

	r.searchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "latency_seconds",
			Help:      "End to end search latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
	)

	r.searchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	r.degraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "degraded_total",
			Help:      "Total number of searches answered without any oracle judgment",
		},
	)

	registry.MustRegister(
		r.oracleCalls,
		r.oracleLatency,
		r.fallbacks,
		r.cacheHits,
		r.cacheMisses,
		r.reflection,
		r.prefilterStage,
		r.validations,
		r.searchLatency,
		r.searchResults,
		r.degraded,
	)

	return r
}

// RecordOracleCall records one oracle call and its latency.
func (r *Recorder) RecordOracleCall(component, outcome string, latency time.Duration) {
	if r == nil {
		return
	}
	r.oracleCalls.WithLabelValues(component, outcome).Inc()
	r.oracleLatency.WithLabelValues(component).Observe(latency.Seconds())
}

// RecordOracleResult classifies err into an outcome and records the call.
func (r *Recorder) RecordOracleResult(component string, err error, latency time.Duration) {
	outcome := OutcomeOK
	switch {
	case errors.Is(err, ai.ErrMalformedResponse):
		outcome = OutcomeMalformed
	case err != nil:
		outcome = OutcomeError
	}
	r.RecordOracleCall(component, outcome, latency)
}

// RecordFallback records a local fallback taken by component.
func (r *Recorder) RecordFallback(component string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(component).Inc()
}

// RecordCacheHit records a cache hit for kind.
func (r *Recorder) RecordCacheHit(kind string) {
	if r == nil {
		return
	}
	r.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for kind.
func (r *Recorder) RecordCacheMiss(kind string) {
	if r == nil {
		return
	}
	r.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordReflection records a quality reflection decision.
func (r *Recorder) RecordReflection(decision string) {
	if r == nil {
		return
	}
	r.reflection.WithLabelValues(decision).Inc()
}

// RecordPrefilterStage records which ladder stage produced the candidates.
func (r *Recorder) RecordPrefilterStage(stage string) {
	if r == nil {
		return
	}
	r.prefilterStage.WithLabelValues(stage).Inc()
}

// RecordValidation records a code validation of kind ("program" or "career") from source.
func (r *Recorder) RecordValidation(kind, source string) {
	if r == nil {
		return
	}
	r.validations.WithLabelValues(kind, source).Inc()
}

// RecordSearch records a completed search.
func (r *Recorder) RecordSearch(latency time.Duration, results int, degraded bool) {
	if r == nil {
		return
	}
	r.searchLatency.Observe(latency.Seconds())
	r.searchResults.Observe(float64(results))
	if degraded {
		r.degraded.Inc()
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns the HTTP handler for the metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
