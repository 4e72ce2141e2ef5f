package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/appmancer/foxy-backend/internal/chain"
	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/eventstore"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/projection"
	"github.com/appmancer/foxy-backend/internal/queue"
	"github.com/appmancer/foxy-backend/internal/statemachine"
	"github.com/appmancer/foxy-backend/internal/tracing"
)

// sweepPageSize bounds one status-view page per sweep iteration.
const sweepPageSize = 50

// ConfirmationWatcher confirms pending main legs. Once a main leg confirms
// it enqueues the fee-leg broadcast, handing the bundle back to the
// broadcaster for its second submission.
type ConfirmationWatcher struct {
	events  *eventstore.Store
	status  *projection.StatusView
	chain   chain.Client
	queue   queue.Queue
	network string
	logger  *slog.Logger
}

func NewConfirmationWatcher(events *eventstore.Store, status *projection.StatusView, client chain.Client, q queue.Queue, network string, logger *slog.Logger) *ConfirmationWatcher {
	return &ConfirmationWatcher{
		events:  events,
		status:  status,
		chain:   client,
		queue:   q,
		network: network,
		logger:  logger.With("component", "confirmation_watcher"),
	}
}

// Sweep walks every pending main leg once. Per-record errors are logged and
// the walk continues; only a status-view query failure aborts the sweep.
func (w *ConfirmationWatcher) Sweep(ctx context.Context) error {
	ctx, span := tracing.Tracer("watcher").Start(ctx, "watcher.confirmations",
		trace.WithAttributes(attribute.String("network", w.network)))
	defer span.End()

	token := ""
	for {
		records, next, err := w.status.QueryByStatus(ctx, model.TxStatusPending, model.LegMain, sweepPageSize, token)
		if err != nil {
			return fmt.Errorf("query pending main legs: %w", err)
		}
		for _, record := range records {
			if err := w.confirm(ctx, record); err != nil {
				w.logger.Error("confirmation failed",
					"bundle_id", record.BundleID,
					"tx_hash", record.TxHash,
					"error", err)
			}
		}
		if next == "" {
			return nil
		}
		token = next
	}
}

func (w *ConfirmationWatcher) confirm(ctx context.Context, record projection.StatusRecord) error {
	if record.TxHash == "" {
		return fmt.Errorf("pending main leg %s has no hash", record.TransactionID)
	}
	receipt, err := w.chain.TransactionReceipt(ctx, record.TxHash)
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		// Not mined yet; the next sweep retries.
		return nil
	}

	// Re-resolve the latest event: an overlapping sweep or a racing writer
	// may have advanced the bundle since the status row was projected.
	last, err := w.events.GetLatestEvent(ctx, record.BundleID)
	if err != nil {
		return fmt.Errorf("resolve latest event: %w", err)
	}
	event, err := statemachine.Confirm(last, model.LegMain, receipt.BlockNumber)
	if err != nil {
		if errors.Is(err, statemachine.ErrInvalidTransition) {
			w.logger.Debug("main leg already advanced, skipping",
				"bundle_id", record.BundleID)
			return nil
		}
		return err
	}
	if err := w.events.Persist(ctx, event); err != nil {
		return fmt.Errorf("persist confirm event: %w", err)
	}
	metrics.WatcherConfirmationsTotal.WithLabelValues(w.network, model.LegMain.String()).Inc()
	w.logger.Info("main leg confirmed",
		"bundle_id", record.BundleID,
		"tx_hash", record.TxHash,
		"block_number", receipt.BlockNumber)

	// The bundle is now MainConfirmed; queue the fee leg for broadcast.
	if err := w.queue.Enqueue(ctx, &queue.BroadcastRequest{
		BundleID: record.BundleID,
		UserID:   record.UserID,
	}); err != nil {
		// The fee leg stays stranded until something re-enqueues it; make
		// this loud.
		return fmt.Errorf("enqueue fee broadcast: %w", err)
	}
	return nil
}
