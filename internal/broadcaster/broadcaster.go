// Package broadcaster drains the broadcast request queue and submits signed
// transaction legs to the chain. Each batch item is processed concurrently;
// the state machine's transition guards make concurrent duplicates safe.
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/appmancer/foxy-backend/internal/alert"
	"github.com/appmancer/foxy-backend/internal/cache"
	"github.com/appmancer/foxy-backend/internal/chain"
	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/eventstore"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/queue"
	"github.com/appmancer/foxy-backend/internal/statemachine"
	"github.com/appmancer/foxy-backend/internal/store"
	"github.com/appmancer/foxy-backend/internal/tracing"
)

// BatchSize bounds how many queued requests one poll consumes.
const BatchSize = 10

// recentHashCapacity bounds the process-local duplicate-submission guard.
const recentHashCapacity = 10

// BatchResult aggregates the outcomes of one batch.
type BatchResult struct {
	Received   int
	Submitted  int
	Duplicates int
	Skipped    int
	Failed     int
}

type Broadcaster struct {
	queue   queue.Queue
	events  *eventstore.Store
	chain   chain.Client
	recent  *cache.RecentSet
	alerter alert.Alerter
	network string
	logger  *slog.Logger
}

func New(q queue.Queue, events *eventstore.Store, client chain.Client, alerter alert.Alerter, network string, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		queue:   q,
		events:  events,
		chain:   client,
		recent:  cache.NewRecentSet(recentHashCapacity),
		alerter: alerter,
		network: network,
		logger:  logger.With("component", "broadcaster"),
	}
}

// ProcessBatch receives up to BatchSize queued requests and processes them
// concurrently. Per-item failures are absorbed into the result; the returned
// error is reserved for queue-level receive failures.
func (b *Broadcaster) ProcessBatch(ctx context.Context) (BatchResult, error) {
	msgs, err := b.queue.ReceiveBatch(ctx, BatchSize)
	if err != nil {
		return BatchResult{}, fmt.Errorf("receive broadcast batch: %w", err)
	}
	metrics.BroadcastBatchesTotal.WithLabelValues(b.network).Inc()
	metrics.QueueMessagesReceived.WithLabelValues(b.network).Add(float64(len(msgs)))

	var submitted, duplicates, skipped, failed atomic.Int64
	var wg sync.WaitGroup
	for _, msg := range msgs {
		wg.Add(1)
		go func(msg queue.Message) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					b.logger.Error("broadcast worker panic", "panic", r)
				}
			}()
			switch outcome := b.processMessage(ctx, msg); outcome {
			case outcomeSubmitted:
				submitted.Add(1)
			case outcomeDuplicate:
				duplicates.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
		}(msg)
	}
	wg.Wait()

	result := BatchResult{
		Received:   len(msgs),
		Submitted:  int(submitted.Load()),
		Duplicates: int(duplicates.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	if result.Received > 0 {
		b.logger.Info("broadcast batch processed",
			"received", result.Received,
			"submitted", result.Submitted,
			"duplicates", result.Duplicates,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
	return result, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSubmitted
	outcomeDuplicate
	outcomeSkipped
)

func (b *Broadcaster) processMessage(ctx context.Context, msg queue.Message) outcome {
	start := time.Now()
	defer func() {
		metrics.BroadcastLatency.WithLabelValues(b.network).Observe(time.Since(start).Seconds())
	}()

	req, err := msg.Request()
	if err != nil {
		// A malformed body can never become processable. Drop it.
		b.logger.Error("dropping malformed broadcast request", "error", err)
		b.ack(ctx, msg)
		return outcomeFailed
	}

	ctx, span := tracing.Tracer("broadcaster").Start(ctx, "broadcaster.processMessage",
		trace.WithAttributes(
			attribute.String("network", b.network),
			attribute.String("bundle_id", req.BundleID),
		))
	defer span.End()

	logger := b.logger.With("bundle_id", req.BundleID)

	last, err := b.events.GetLatestEvent(ctx, req.BundleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Error("broadcast request for unknown bundle, dropping")
			b.ack(ctx, msg)
			return outcomeFailed
		}
		// Store outage: leave the message queued for the next poll.
		logger.Error("resolve latest event failed", "error", err)
		return outcomeFailed
	}

	leg, err := statemachine.BroadcastableLeg(last)
	if err != nil {
		// Already broadcast or otherwise stale, for instance a redelivered
		// message whose first delivery succeeded. Nothing left to do.
		logger.Info("bundle not broadcastable, dropping request",
			"event_type", last.Type.String(),
			"bundle_status", last.BundleStatus.String())
		b.ack(ctx, msg)
		return outcomeSkipped
	}
	span.SetAttributes(attribute.String("leg", leg.String()))
	logger = logger.With("leg", leg.String())

	signed := last.Snapshot.Leg(leg).SignedTx
	if signed == "" {
		logger.Error("broadcastable leg has no signed payload")
		b.ack(ctx, msg)
		return outcomeFailed
	}
	hash, err := model.SignedPayloadHash(signed)
	if err != nil {
		logger.Error("compute payload hash failed", "error", err)
		b.ack(ctx, msg)
		return outcomeFailed
	}
	logger = logger.With("tx_hash", hash)

	// Reserve the hash before touching the network so a concurrently
	// dispatched worker for the same payload cannot race past the check.
	if b.recent.CheckAndAdd(hash) {
		metrics.BroadcastDuplicatesSkipped.WithLabelValues(b.network).Inc()
		// Keep the message. The hash may belong to a worker whose
		// submission landed on chain but whose event write failed; a later
		// redelivery retries once the hash ages out, and the broadcastable
		// check above acks it as soon as the event is durable.
		logger.Info("duplicate submission suppressed")
		return outcomeDuplicate
	}

	if _, err := b.chain.SendRawTransaction(ctx, signed); err != nil {
		logger.Warn("submission failed, attempting recovery by hash", "error", err)
		if !b.recoverByHash(ctx, hash) {
			return b.failLeg(ctx, msg, last, leg, hash, err)
		}
		logger.Info("recovered: transaction already known to the node")
	}

	event, err := statemachine.Broadcast(last, hash)
	if err != nil {
		logger.Error("record broadcast transition failed", "error", err)
		b.ack(ctx, msg)
		return outcomeFailed
	}
	if err := b.events.Persist(ctx, event); err != nil {
		// The chain accepted the payload but the log write failed. Keep the
		// message; the next delivery recovers via the hash lookup.
		logger.Error("persist broadcast event failed", "error", err)
		return outcomeFailed
	}

	metrics.BroadcastSubmittedTotal.WithLabelValues(b.network, leg.String()).Inc()
	logger.Info("leg submitted")
	b.ack(ctx, msg)
	return outcomeSubmitted
}

// recoverByHash reports whether a transaction with the given hash is already
// known to the node, meaning a previous attempt submitted it before failing.
func (b *Broadcaster) recoverByHash(ctx context.Context, hash string) bool {
	tx, err := b.chain.TransactionByHash(ctx, hash)
	if err != nil {
		b.logger.Warn("recovery lookup failed", "tx_hash", hash, "error", err)
		return false
	}
	return tx != nil
}

func (b *Broadcaster) failLeg(ctx context.Context, msg queue.Message, last *model.TransactionEvent, leg model.Leg, hash string, cause error) outcome {
	metrics.BroadcastFailuresTotal.WithLabelValues(b.network).Inc()

	event, err := statemachine.Fail(last, leg)
	if err != nil {
		b.logger.Error("record fail transition rejected",
			"bundle_id", last.BundleID, "error", err)
	} else if err := b.events.Persist(ctx, event); err != nil {
		b.logger.Error("persist fail event failed",
			"bundle_id", last.BundleID, "error", err)
	}

	// Ack regardless: retrying a rejected payload forever is a poison loop.
	b.ack(ctx, msg)

	if err := b.alerter.Send(ctx, alert.Alert{
		Type:     alert.AlertTypeFatalDependency,
		Network:  b.network,
		BundleID: last.BundleID,
		Title:    "Broadcast unrecoverable",
		Message:  cause.Error(),
		Fields: map[string]string{
			"leg":     leg.String(),
			"tx_hash": hash,
		},
	}); err != nil {
		b.logger.Warn("send alert failed", "bundle_id", last.BundleID, "error", err)
	}
	return outcomeFailed
}

func (b *Broadcaster) ack(ctx context.Context, msg queue.Message) {
	if err := b.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		b.logger.Warn("delete queue message failed",
			"receipt_handle", msg.ReceiptHandle, "error", err)
		return
	}
	metrics.QueueMessagesDeleted.WithLabelValues(b.network).Inc()
}
