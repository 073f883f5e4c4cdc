package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fidesops",
		Subsystem: "runner",
		Name:      "requests_finished_total",
		Help:      "Privacy requests reaching a terminal state, by status.",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fidesops",
		Subsystem: "runner",
		Name:      "request_duration_seconds",
		Help:      "Wall-clock time spent executing a privacy request.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	nodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fidesops",
		Subsystem: "runner",
		Name:      "nodes_executed_total",
		Help:      "Traversal nodes executed, by action and outcome.",
	}, []string{"action", "status"})

	webhooksExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fidesops",
		Subsystem: "runner",
		Name:      "webhooks_executed_total",
		Help:      "Policy webhooks fired, by kind and outcome.",
	}, []string{"kind", "outcome"})

	valuesMasked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fidesops",
		Subsystem: "runner",
		Name:      "values_masked_total",
		Help:      "Records masked across all erasure phases.",
	})
)
