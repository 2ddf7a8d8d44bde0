package gateway

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_attempts_total",
			Help: "Upstream completion attempts by outcome.",
		},
		[]string{"outcome"},
	)
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Orchestrated completion calls by terminal outcome.",
		},
		[]string{"outcome"},
	)
	waitSecondsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_backoff_wait_seconds_total",
			Help: "Total seconds spent waiting in backoff.",
		},
	)
	attemptsPerCall = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_call_attempts",
			Help:    "Attempts needed per orchestrated call.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(attemptsTotal)
	prometheus.MustRegister(callsTotal)
	prometheus.MustRegister(waitSecondsTotal)
	prometheus.MustRegister(attemptsPerCall)
}
