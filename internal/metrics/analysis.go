package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All labels are low-cardinality: no camera, company or user ids.

var (
	// AnalysisRequestsTotal counts analysis requests by tampering payload kind and outcome
	AnalysisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Analysis requests by tampering payload kind and outcome",
		},
		[]string{"payload", "outcome"},
	)

	// AnalysisFailuresTotal counts requests that ended in a server error
	AnalysisFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_failures_total",
			Help: "Analysis requests that failed with an unexpected error",
		},
		[]string{"stage"},
	)

	// SceneChangeResultsTotal counts the externally visible scene-change results
	SceneChangeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scene_change_results_total",
			Help: "Scene change results returned to callers",
		},
		[]string{"result"},
	)

	// ReferenceWritesTotal counts reference image writes by phase and status
	ReferenceWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tampering_reference_writes_total",
			Help: "Reference image writes by phase and status",
		},
		[]string{"phase", "status"},
	)

	// EngineLatency tracks the external engine round trip
	EngineLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_engine_latency_ms",
			Help:    "External analysis engine latency in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	// CapabilityCacheTotal counts capability lookups by cache outcome
	CapabilityCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capability_cache_lookups_total",
			Help: "Capability lookups by cache outcome",
		},
		[]string{"outcome"},
	)
)

func RecordAnalysis(payload, outcome string) {
	AnalysisRequestsTotal.WithLabelValues(payload, outcome).Inc()
}

func RecordFailure(stage string) {
	AnalysisFailuresTotal.WithLabelValues(stage).Inc()
}

func RecordSceneChange(result string) {
	SceneChangeResultsTotal.WithLabelValues(result).Inc()
}

func RecordReferenceWrite(phase, status string) {
	ReferenceWritesTotal.WithLabelValues(phase, status).Inc()
}

func RecordEngineLatency(latencyMs float64) {
	EngineLatency.Observe(latencyMs)
}

func RecordCapabilityLookup(hit bool) {
	if hit {
		CapabilityCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	CapabilityCacheTotal.WithLabelValues("miss").Inc()
}
