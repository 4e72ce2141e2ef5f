package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/appmancer/foxy-backend/internal/alert"
	"github.com/appmancer/foxy-backend/internal/chain"
	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/eventstore"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/projection"
	"github.com/appmancer/foxy-backend/internal/statemachine"
	"github.com/appmancer/foxy-backend/internal/tracing"
)

// FinalizationWatcher confirms pending fee legs, completing the bundle. It
// additionally checks the receipt's execution status: a reverted fee
// transfer fails the bundle instead of completing it.
type FinalizationWatcher struct {
	events  *eventstore.Store
	status  *projection.StatusView
	chain   chain.Client
	alerter alert.Alerter
	network string
	logger  *slog.Logger
}

func NewFinalizationWatcher(events *eventstore.Store, status *projection.StatusView, client chain.Client, alerter alert.Alerter, network string, logger *slog.Logger) *FinalizationWatcher {
	return &FinalizationWatcher{
		events:  events,
		status:  status,
		chain:   client,
		alerter: alerter,
		network: network,
		logger:  logger.With("component", "finalization_watcher"),
	}
}

// Sweep walks every pending fee leg once.
func (w *FinalizationWatcher) Sweep(ctx context.Context) error {
	ctx, span := tracing.Tracer("watcher").Start(ctx, "watcher.finalizations",
		trace.WithAttributes(attribute.String("network", w.network)))
	defer span.End()

	token := ""
	for {
		records, next, err := w.status.QueryByStatus(ctx, model.TxStatusPending, model.LegFee, sweepPageSize, token)
		if err != nil {
			return fmt.Errorf("query pending fee legs: %w", err)
		}
		for _, record := range records {
			if err := w.finalize(ctx, record); err != nil {
				w.logger.Error("finalization failed",
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

func (w *FinalizationWatcher) finalize(ctx context.Context, record projection.StatusRecord) error {
	if record.TxHash == "" {
		return fmt.Errorf("pending fee leg %s has no hash", record.TransactionID)
	}
	receipt, err := w.chain.TransactionReceipt(ctx, record.TxHash)
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		return nil
	}

	last, err := w.events.GetLatestEvent(ctx, record.BundleID)
	if err != nil {
		return fmt.Errorf("resolve latest event: %w", err)
	}

	if receipt.Status != chain.ReceiptStatusSuccess {
		return w.fail(ctx, last, record, receipt)
	}

	event, err := statemachine.Confirm(last, model.LegFee, receipt.BlockNumber)
	if err != nil {
		if errors.Is(err, statemachine.ErrInvalidTransition) {
			w.logger.Debug("fee leg already advanced, skipping",
				"bundle_id", record.BundleID)
			return nil
		}
		return err
	}
	if err := w.events.Persist(ctx, event); err != nil {
		return fmt.Errorf("persist confirm event: %w", err)
	}
	metrics.WatcherConfirmationsTotal.WithLabelValues(w.network, model.LegFee.String()).Inc()
	w.logger.Info("fee leg confirmed, bundle completed",
		"bundle_id", record.BundleID,
		"tx_hash", record.TxHash,
		"block_number", receipt.BlockNumber)
	return nil
}

func (w *FinalizationWatcher) fail(ctx context.Context, last *model.TransactionEvent, record projection.StatusRecord, receipt *chain.Receipt) error {
	metrics.WatcherRevertsTotal.WithLabelValues(w.network).Inc()

	event, err := statemachine.Fail(last, model.LegFee)
	if err != nil {
		if errors.Is(err, statemachine.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	if err := w.events.Persist(ctx, event); err != nil {
		return fmt.Errorf("persist fail event: %w", err)
	}
	w.logger.Warn("fee leg reverted on chain",
		"bundle_id", record.BundleID,
		"tx_hash", record.TxHash,
		"block_number", receipt.BlockNumber)

	if err := w.alerter.Send(ctx, alert.Alert{
		Type:     alert.AlertTypeReverted,
		Network:  w.network,
		BundleID: record.BundleID,
		Title:    "Fee transaction reverted",
		Message:  "receipt reports failed execution",
		Fields: map[string]string{
			"tx_hash": record.TxHash,
			"block":   strconv.FormatUint(receipt.BlockNumber, 10),
		},
	}); err != nil {
		w.logger.Warn("send alert failed", "bundle_id", record.BundleID, "error", err)
	}
	return nil
}
