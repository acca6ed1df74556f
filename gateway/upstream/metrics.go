package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks upstream calls per upstream and result
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Total number of upstream requests",
		},
		[]string{"upstream", "result"},
	)

	// RequestLatency tracks upstream call latency
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_latency_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	// FailoversTotal tracks endpoint switches
	FailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_failovers_total",
			Help: "Total number of failovers to another endpoint",
		},
		[]string{"upstream"},
	)
)
