// Package eventstore persists the append-only bundle event log and fans each
// persisted event out to read-model projections.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/statemachine"
	"github.com/appmancer/foxy-backend/internal/store"
)

// ErrAlreadyPersisted is returned when an event carrying a store-assigned id
// is handed back to Persist.
var ErrAlreadyPersisted = errors.New("event already persisted")

// Table is the event log table name.
const Table = "transaction_events"

const (
	attrEvent     = "Event"
	attrEventType = "EventType"
	attrUserID    = "UserID"
)

// IndexedAttrs lists the attributes the event log table needs secondary
// indexes on for QueryByAttr lookups.
var IndexedAttrs = []string{attrEventType, attrUserID}

// Projector consumes persisted events to maintain a read model. Projection
// failures never roll back the event write.
type Projector interface {
	Name() string
	Apply(ctx context.Context, event *model.TransactionEvent) error
}

// Store is the event log. The partition key groups all events of one bundle;
// the sort key orders them by creation time, so the newest event in a
// partition is the bundle's current state.
type Store struct {
	items      store.ItemStore
	network    string
	projectors []Projector
	logger     *slog.Logger
}

func New(items store.ItemStore, network string, logger *slog.Logger, projectors ...Projector) *Store {
	return &Store{
		items:      items,
		network:    network,
		projectors: projectors,
		logger:     logger,
	}
}

func partitionKey(bundleID string) string {
	return "Bundle#" + bundleID
}

// sortKeyFormat is RFC 3339 with fixed-width nanoseconds. RFC3339Nano trims
// trailing zeros, which would break the lexicographic ordering the range
// queries depend on.
const sortKeyFormat = "2006-01-02T15:04:05.000000000Z07:00"

// sortKey carries the event id so two events stamped in the same nanosecond
// get distinct keys instead of replacing each other.
func sortKey(createdAt time.Time, eventID string) string {
	return "Event#" + createdAt.UTC().Format(sortKeyFormat) + "#" + eventID
}

// Persist assigns the event an id, appends it to the log, and applies it to
// every projector. The event write is authoritative; a projection failure is
// logged and counted but does not fail the call.
func (s *Store) Persist(ctx context.Context, event *model.TransactionEvent) error {
	if event.EventID != "" {
		return fmt.Errorf("event %s for bundle %s: %w", event.EventID, event.BundleID, ErrAlreadyPersisted)
	}
	start := time.Now()
	event.EventID = uuid.NewString()

	payload, err := json.Marshal(event)
	if err != nil {
		event.EventID = ""
		return fmt.Errorf("encode event: %w", err)
	}

	item := store.Item{
		store.AttrPK:  partitionKey(event.BundleID),
		store.AttrSK:  sortKey(event.CreatedAt, event.EventID),
		attrEvent:     string(payload),
		attrEventType: event.Type.String(),
		attrUserID:    event.UserID,
	}
	if err := s.items.PutItem(ctx, Table, item); err != nil {
		event.EventID = ""
		metrics.EventPersistErrors.WithLabelValues(s.network).Inc()
		return fmt.Errorf("persist event for bundle %s: %w", event.BundleID, err)
	}

	for _, p := range s.projectors {
		if err := p.Apply(ctx, event); err != nil {
			metrics.ProjectionErrors.WithLabelValues(s.network, p.Name()).Inc()
			s.logger.Error("projection update failed",
				"projection", p.Name(),
				"bundle_id", event.BundleID,
				"event_id", event.EventID,
				"error", err)
		}
	}

	metrics.EventsPersistedTotal.WithLabelValues(s.network, event.Type.String()).Inc()
	metrics.EventPersistLatency.WithLabelValues(s.network).Observe(time.Since(start).Seconds())
	return nil
}

// PersistInitial opens a bundle's event log by building and persisting its
// Initiate event.
func (s *Store) PersistInitial(ctx context.Context, bundle model.TransactionBundle) (*model.TransactionEvent, error) {
	event := statemachine.Initiate(bundle)
	if err := s.Persist(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// GetLatestEvent returns the newest event for a bundle, which carries the
// bundle's current state in its snapshot. Returns store.ErrNotFound when the
// bundle has no events.
func (s *Store) GetLatestEvent(ctx context.Context, bundleID string) (*model.TransactionEvent, error) {
	result, err := s.items.Query(ctx, Table, store.Query{
		PartitionKey: partitionKey(bundleID),
		SortPrefix:   "Event#",
		Descending:   true,
		Limit:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("query latest event for bundle %s: %w", bundleID, err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("bundle %s: %w", bundleID, store.ErrNotFound)
	}
	return decodeEvent(result.Items[0])
}

// GetEvents returns a page of a bundle's events in creation order.
func (s *Store) GetEvents(ctx context.Context, bundleID string, limit int, pageToken string) ([]*model.TransactionEvent, string, error) {
	startKey, err := store.DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("decode page token: %w", err)
	}
	result, err := s.items.Query(ctx, Table, store.Query{
		PartitionKey: partitionKey(bundleID),
		SortPrefix:   "Event#",
		Limit:        limit,
		StartKey:     startKey,
	})
	if err != nil {
		return nil, "", fmt.Errorf("query events for bundle %s: %w", bundleID, err)
	}

	events := make([]*model.TransactionEvent, 0, len(result.Items))
	for _, item := range result.Items {
		event, err := decodeEvent(item)
		if err != nil {
			return nil, "", err
		}
		events = append(events, event)
	}
	next, err := store.EncodePageToken(result.LastKey)
	if err != nil {
		return nil, "", fmt.Errorf("encode page token: %w", err)
	}
	return events, next, nil
}

func decodeEvent(item store.Item) (*model.TransactionEvent, error) {
	raw, ok := item[attrEvent]
	if !ok {
		return nil, fmt.Errorf("item %s/%s has no event payload", item[store.AttrPK], item[store.AttrSK])
	}
	var event model.TransactionEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return &event, nil
}
