// Package metrics exposes the Prometheus instrumentation for Argus.
// Collectors are package level and registered once on the default registerer.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "argus"

var (
	// Cache-aside outcomes
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache reads answered without invoking compute",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache reads that fell through to compute",
	})
	CacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "write_errors_total",
		Help:      "Swallowed cache write-back failures",
	})

	// Admission control
	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "denials_total",
		Help:      "Requests denied by sliding-window admission control",
	}, []string{"source"})

	// Collection fan-out
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "fetches_total",
		Help:      "Per-source fetch attempts by outcome",
	}, []string{"source", "outcome"})
	QuotesCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "quotes_total",
		Help:      "Quotes assembled per source",
	}, []string{"source"})
	CollectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "collection_duration_seconds",
		Help:      "Wall time of one full collection fan-out",
		Buckets:   prometheus.DefBuckets,
	})
	LastCycleQuotes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "collector",
		Name:      "last_cycle_quotes",
		Help:      "Quotes gathered by the most recent collection cycle",
	}, []string{"sport"})

	// Name normalization
	NormalizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "normalize",
		Name:      "normalizations_total",
		Help:      "Normalizations by mode (remote or fallback)",
	}, []string{"mode"})

	// History writer
	WriterRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "writer",
		Name:      "rows_total",
		Help:      "Quote rows flushed to the history table",
	})
	WriterFlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "writer",
		Name:      "flush_errors_total",
		Help:      "Failed history flush attempts",
	})
)

// Serve exposes /metrics, and /status when a status handler is given, on
// addr until ctx is done. The listener shuts down gracefully with a short
// drain timeout.
func Serve(ctx context.Context, addr string, status http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if status != nil {
		mux.Handle("/status", status)
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics listener started", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
