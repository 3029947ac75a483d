package grading

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	resultsTotal *prometheus.CounterVec
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		resultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreboard_grading_results_total",
			Help: "Grading results received, by outcome.",
		}, []string{"outcome"})
		prometheus.MustRegister(resultsTotal)
	})
}

func observeResult(outcome string) {
	RegisterMetrics()
	resultsTotal.WithLabelValues(outcome).Inc()
}
