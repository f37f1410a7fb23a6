package buildcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// decisions counts cache decisions.
// Labels: stage (base, enriched), plan
var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sbom_order",
	Subsystem: "buildcache",
	Name:      "decisions_total",
	Help:      "Cache decisions by stage and plan",
}, []string{"stage", "plan"})
