package metrics

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"CCIP-Bridge/pkg/logger"
)

var registerOnce sync.Once

// Register adds every collector of this package to the default registry.
// Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		registerIfNotExists(collectors.NewGoCollector(), "go_collector")
		registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector")
		for name, c := range map[string]prometheus.Collector{
			"http_requests_total":        httpRequestsTotal,
			"http_request_errors_total":  httpRequestErrorsTotal,
			"http_request_duration":      httpRequestDuration,
			"transfer_submitted_total":   transfersSubmittedTotal,
			"transfer_completed_total":   transfersCompletedTotal,
			"transfer_dispatch_duration": transferDispatchDuration,
			"transfer_in_flight":         transfersInFlight,
			"accounts_pda_cache_lookups": pdaCacheLookupsTotal,
		} {
			registerIfNotExists(c, name)
		}
	})
}

func registerIfNotExists(c prometheus.Collector, name string) {
	if err := prometheus.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			logger.L().Debug("metric already registered", slog.String("metric", name))
			return
		}
		logger.L().Error("failed to register metric", slog.String("metric", name), slog.Any("error", err))
	}
}
