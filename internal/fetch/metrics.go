package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attempts counts attempt-chain links by outcome.
	// Labels: link (cache, tool, primary, fallback), outcome
	attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sbom_order",
		Subsystem: "fetch",
		Name:      "attempts_total",
		Help:      "Attempt chain links tried, by link and outcome",
	}, []string{"link", "outcome"})

	// records counts final records.
	// Labels: kind, status
	records = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sbom_order",
		Subsystem: "fetch",
		Name:      "records_total",
		Help:      "Final download records by artifact kind and status",
	}, []string{"kind", "status"})

	// linkDuration measures network and tool links.
	// Labels: link
	linkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sbom_order",
		Subsystem: "fetch",
		Name:      "link_duration_seconds",
		Help:      "Time spent in one attempt chain link",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"link"})

	// poolPending tracks tasks not yet finished by a running pool.
	poolPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sbom_order",
		Subsystem: "fetch",
		Name:      "pool_pending_tasks",
		Help:      "Tasks queued or running in fetch pools",
	})
)
