// Package app holds bootstrap helpers shared by the service binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/appmancer/foxy-backend/internal/alert"
	"github.com/appmancer/foxy-backend/internal/config"
	"github.com/appmancer/foxy-backend/internal/eventstore"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/projection"
	"github.com/appmancer/foxy-backend/internal/store/postgres"
)

const dbPoolStatsInterval = 15 * time.Second

// NewLogger builds the JSON logger used by every binary.
func NewLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// EnsureTables creates the event log and projection tables with their
// attribute indexes.
func EnsureTables(ctx context.Context, items *postgres.ItemStore) error {
	if err := items.EnsureTable(ctx, eventstore.Table, eventstore.IndexedAttrs...); err != nil {
		return err
	}
	if err := items.EnsureTable(ctx, projection.StatusTable, projection.StatusIndexedAttrs...); err != nil {
		return err
	}
	return items.EnsureTable(ctx, projection.HistoryTable, projection.HistoryIndexedAttrs...)
}

// BuildAlerter assembles the configured alert channels. With no channels
// configured it falls back to a no-op alerter so callers never nil-check.
func BuildAlerter(cfg *config.Config, logger *slog.Logger) alert.Alerter {
	var channels []alert.Alerter
	if cfg.Alert.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	if len(channels) == 0 {
		logger.Warn("no alert channels configured, alerts disabled")
		return &alert.NoopAlerter{}
	}
	return alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, channels...)
}

// StartDBPoolStatsPump samples sql.DB pool stats into gauges until ctx ends.
func StartDBPoolStatsPump(ctx context.Context, db *sql.DB, network string) {
	ticker := time.NewTicker(dbPoolStatsInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				metrics.DBPoolOpen.WithLabelValues(network).Set(float64(stats.OpenConnections))
				metrics.DBPoolInUse.WithLabelValues(network).Set(float64(stats.InUse))
				metrics.DBPoolIdle.WithLabelValues(network).Set(float64(stats.Idle))
			}
		}
	}()
}

// RunHealthServer serves /healthz and /metrics until ctx is cancelled.
func RunHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
