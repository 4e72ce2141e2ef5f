// Package watcher hosts the polling loops that reconcile pending legs
// against chain receipts: a short-interval confirmation loop for the main
// leg and a long-interval finalization loop for the fee leg.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/appmancer/foxy-backend/internal/metrics"
)

// Sweep is one poll iteration. Errors are logged and the loop retries on the
// next tick.
type Sweep func(ctx context.Context) error

// Run executes sweep on every tick until ctx is cancelled. An in-flight
// sweep always finishes; cancellation is observed between iterations.
func Run(ctx context.Context, name, network string, interval time.Duration, logger *slog.Logger, sweep Sweep) {
	logger = logger.With("watcher", name)
	logger.Info("watcher started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped")
			return
		case <-ticker.C:
		}

		start := time.Now()
		metrics.WatcherSweepsTotal.WithLabelValues(network, name).Inc()
		if err := sweep(ctx); err != nil {
			metrics.WatcherErrors.WithLabelValues(network, name).Inc()
			logger.Error("sweep failed", "error", err)
		}
		metrics.WatcherSweepLatency.WithLabelValues(network, name).Observe(time.Since(start).Seconds())
	}
}
