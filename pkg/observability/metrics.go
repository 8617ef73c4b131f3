package observability

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartMetricsServer exposes the default registry on addr/metrics in a
// background goroutine. Both daemons use it: the broker publishes its
// per-category item counters there, the API its request metrics. A bind
// failure is logged rather than fatal so a scrape-port clash cannot take
// the daemon down with it.
func StartMetricsServer(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}
