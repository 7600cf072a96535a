// Package metrics exposes Prometheus counters for the injection and
// callback pipelines.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	injectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ricochet_injections_total",
		Help: "Injection attempts by outcome (sent, dry-run, timeout, connection-error).",
	}, []string{"outcome"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ricochet_callbacks_total",
		Help: "Out-of-band callbacks by protocol and correlation status.",
	}, []string{"protocol", "status"})

	findingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ricochet_findings_total",
		Help: "Findings emitted by the polling loop.",
	})
)

// RecordInjection counts one injection attempt by outcome label.
func RecordInjection(outcome string) {
	injectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCallback counts one received callback. status is "known" when the
// correlation ID matched an injection, "unknown" otherwise.
func RecordCallback(protocol string, known bool) {
	status := "unknown"
	if known {
		status = "known"
	}
	callbacksTotal.WithLabelValues(protocol, status).Inc()
}

// RecordFindings counts findings emitted to a poll consumer.
func RecordFindings(n int) {
	findingsTotal.Add(float64(n))
}

// StartServer serves /metrics on addr until ctx is cancelled. Failures are
// logged, never fatal: metrics are best-effort.
func StartServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Metrics server failed")
		}
	}()
}
