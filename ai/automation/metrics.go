package automation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricParseSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "automation",
		Name:      "parse_success_total",
		Help:      "Commands parsed successfully, labeled by parser path.",
	}, []string{"path"})

	metricParseFallback = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "automation",
		Name:      "parse_fallback_total",
		Help:      "LLM parse failures that fell back to regex extraction.",
	})

	metricParseFailure = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "automation",
		Name:      "parse_failure_total",
		Help:      "Commands neither parser path could extract.",
	})

	metricPermissionDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "automation",
		Name:      "permission_denied_total",
		Help:      "Commands rejected by the role gate, labeled by action.",
	}, []string{"action"})

	metricDispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assist",
		Subsystem: "automation",
		Name:      "dispatch_duration_seconds",
		Help:      "End-to-end handler latency, labeled by action and outcome.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"action", "outcome"})
)
