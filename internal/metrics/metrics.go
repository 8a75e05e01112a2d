package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configbot_requests_total",
			Help: "Total number of modification requests by outcome",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "configbot_request_duration_seconds",
			Help:    "End-to-end modification request duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	Failures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configbot_failures_total",
			Help: "Total number of terminal pipeline failures by kind",
		},
		[]string{"kind"},
	)

	Repairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "configbot_repairs_total",
			Help: "Total number of repair prompts issued after a validation failure",
		},
	)

	OracleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "configbot_oracle_latency_seconds",
			Help:    "Oracle generation latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)

	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configbot_oracle_calls_total",
			Help: "Total number of oracle calls by result",
		},
		[]string{"result"},
	)

	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "configbot_dependency_up",
			Help: "Whether the last health probe of a dependency succeeded",
		},
		[]string{"dependency"},
	)

	StoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "configbot_store_requests_total",
			Help: "Total number of collaborator lookups served by kind and status",
		},
		[]string{"kind", "status"},
	)
)
