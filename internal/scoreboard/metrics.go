package scoreboard

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	computationsTotal   *prometheus.CounterVec
	computeLatency      *prometheus.HistogramVec
	cacheLookupsTotal   *prometheus.CounterVec
	visibilityDenyTotal prometheus.Counter
)

// RegisterMetrics registers the engine collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		computationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_computations_total",
			Help: "Number of standings computations by kind and outcome.",
		}, []string{"kind", "outcome"})

		computeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoreboard_compute_seconds",
			Help:    "Time spent computing standings data, store reads included.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_cache_lookups_total",
			Help: "Scoreboard cache lookups by result.",
		}, []string{"result"})

		visibilityDenyTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoreboard_visibility_denied_total",
			Help: "Requests rejected by the scoreboard visibility policy.",
		})

		prometheus.MustRegister(computationsTotal, computeLatency, cacheLookupsTotal, visibilityDenyTotal)
	})
}

func observe(kind string, seconds float64, err error) {
	RegisterMetrics()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	computationsTotal.WithLabelValues(kind, outcome).Inc()
	computeLatency.WithLabelValues(kind).Observe(seconds)
}

func observeCache(hit bool) {
	RegisterMetrics()
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

func observeDenied() {
	RegisterMetrics()
	visibilityDenyTotal.Inc()
}
