package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transfersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccip",
			Subsystem: "transfer",
			Name:      "submitted_total",
			Help:      "Transfer intents accepted for dispatch, by route.",
		},
		[]string{"source", "destination"},
	)

	transfersCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccip",
			Subsystem: "transfer",
			Name:      "completed_total",
			Help:      "Dispatcher completions by terminal status.",
		},
		[]string{"status"},
	)

	transferDispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ccip",
			Subsystem: "transfer",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent by a submitter on one transfer.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
	)

	transfersInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ccip",
			Subsystem: "transfer",
			Name:      "in_flight",
			Help:      "Transfers currently held by a dispatcher worker.",
		},
	)

	pdaCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ccip",
			Subsystem: "accounts",
			Name:      "pda_cache_lookups_total",
			Help:      "Program derived address cache lookups by result.",
		},
		[]string{"result"},
	)
)

// ObserveTransferSubmitted counts an accepted intent.
func ObserveTransferSubmitted(source, destination string) {
	transfersSubmittedTotal.WithLabelValues(source, destination).Inc()
}

// TransferStarted marks a worker picking a job; call the returned func when
// the submitter returns.
func TransferStarted() func(status string) {
	start := time.Now()
	transfersInFlight.Inc()
	return func(status string) {
		transfersInFlight.Dec()
		transferDispatchDuration.Observe(time.Since(start).Seconds())
		transfersCompletedTotal.WithLabelValues(status).Inc()
	}
}

// ObservePDACache records one derivation cache lookup.
func ObservePDACache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	pdaCacheLookupsTotal.WithLabelValues(result).Inc()
}
