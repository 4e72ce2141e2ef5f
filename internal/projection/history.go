package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/store"
)

// HistoryTable is the history view table name.
const HistoryTable = "history_view"

const attrUserBundle = "UserBundle"

// HistoryIndexedAttrs lists the attributes the history view table needs
// secondary indexes on.
var HistoryIndexedAttrs = []string{attrUserBundle}

// Direction is the payment's direction from one party's point of view.
type Direction string

const (
	DirectionIncoming Direction = "Incoming"
	DirectionOutgoing Direction = "Outgoing"
)

// HistoryRecord is one user's view of one payment. Rows are keyed by the
// bundle's creation time, so every event of a bundle replaces the same row
// and a user's history stays one row per payment.
type HistoryRecord struct {
	UserID             string             `json:"user_id"`
	BundleID           string             `json:"bundle_id"`
	Direction          Direction          `json:"direction"`
	Status             model.BundleStatus `json:"status"`
	CounterpartyName   string             `json:"counterparty_name"`
	CounterpartyWallet string             `json:"counterparty_wallet"`
	Value              string             `json:"value"`
	Token              model.TokenType    `json:"token"`
	TxHash             string             `json:"tx_hash,omitempty"`
	DisplayCurrency    string             `json:"display_currency,omitempty"`
	FiatAmountMinor    uint64             `json:"fiat_amount_minor,omitempty"`
	Message            string             `json:"message,omitempty"`
	ServiceFeeWei      string             `json:"service_fee_wei,omitempty"`
	NetworkFeeWei      string             `json:"network_fee_wei,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// HistoryView keeps a chronological payment list per user, one row per
// counterparty. Events without sender and recipient party details carry
// nothing displayable and are skipped.
type HistoryView struct {
	items   store.ItemStore
	network string
	logger  *slog.Logger
}

func NewHistoryView(items store.ItemStore, network string, logger *slog.Logger) *HistoryView {
	return &HistoryView{items: items, network: network, logger: logger}
}

func (v *HistoryView) Name() string { return "history" }

// Apply projects the event into up to two rows, the sender's and the
// recipient's view of the payment.
func (v *HistoryView) Apply(ctx context.Context, event *model.TransactionEvent) error {
	meta := event.Snapshot.Metadata
	if meta == nil || meta.Sender == nil || meta.Recipient == nil {
		v.logger.Warn("event has no party details, skipping history projection",
			"bundle_id", event.BundleID,
			"event_id", event.EventID)
		return nil
	}

	rows := []HistoryRecord{
		v.record(event, meta.Sender, meta.Recipient, DirectionOutgoing),
		v.record(event, meta.Recipient, meta.Sender, DirectionIncoming),
	}
	for _, r := range rows {
		if r.UserID == "" {
			continue
		}
		if err := v.put(ctx, r); err != nil {
			return err
		}
		metrics.ProjectionUpdatesTotal.WithLabelValues(v.network, v.Name()).Inc()
	}
	return nil
}

func (v *HistoryView) record(event *model.TransactionEvent, owner, counterparty *model.PartyDetails, direction Direction) HistoryRecord {
	meta := event.Snapshot.Metadata
	r := HistoryRecord{
		UserID:             owner.UserID,
		BundleID:           event.BundleID,
		Direction:          direction,
		Status:             event.Snapshot.Status,
		CounterpartyName:   counterparty.Name,
		CounterpartyWallet: counterparty.Wallet,
		Value:              event.Snapshot.MainTx.Value,
		Token:              event.Snapshot.MainTx.Token,
		TxHash:             event.Snapshot.MainTx.TxHash,
		DisplayCurrency:    meta.DisplayCurrency,
		FiatAmountMinor:    meta.FiatAmountMinor,
		Message:            meta.Message,
		CreatedAt:          event.Snapshot.CreatedAt,
		UpdatedAt:          event.Snapshot.UpdatedAt,
	}
	if meta.Quote != nil {
		r.ServiceFeeWei = meta.Quote.ServiceFeeWei
		r.NetworkFeeWei = meta.Quote.NetworkFeeWei
	}
	return r
}

func (v *HistoryView) put(ctx context.Context, r HistoryRecord) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	item := store.Item{
		store.AttrPK:   "User#" + r.UserID,
		store.AttrSK:   historySortKey(r.CreatedAt, r.BundleID),
		attrRecord:     string(payload),
		attrUserBundle: userBundleKey(r.UserID, r.BundleID),
	}
	if err := v.items.PutItem(ctx, HistoryTable, item); err != nil {
		return fmt.Errorf("put history row for user %s bundle %s: %w", r.UserID, r.BundleID, err)
	}
	return nil
}

// historySortKeyFormat is RFC 3339 with fixed-width nanoseconds so the keys
// order lexicographically by time.
const historySortKeyFormat = "2006-01-02T15:04:05.000000000Z07:00"

func historySortKey(createdAt time.Time, bundleID string) string {
	return "History#" + createdAt.UTC().Format(historySortKeyFormat) + "#" + bundleID
}

func userBundleKey(userID, bundleID string) string {
	return userID + "#" + bundleID
}

// QueryByUser returns a page of the user's payments, newest first.
func (v *HistoryView) QueryByUser(ctx context.Context, userID string, limit int, pageToken string) ([]HistoryRecord, string, error) {
	startKey, err := store.DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("decode page token: %w", err)
	}
	result, err := v.items.Query(ctx, HistoryTable, store.Query{
		PartitionKey: "User#" + userID,
		SortPrefix:   "History#",
		Descending:   true,
		Limit:        limit,
		StartKey:     startKey,
	})
	if err != nil {
		return nil, "", fmt.Errorf("query history for user %s: %w", userID, err)
	}
	records, err := decodeHistoryItems(result.Items)
	if err != nil {
		return nil, "", err
	}
	next, err := store.EncodePageToken(result.LastKey)
	if err != nil {
		return nil, "", fmt.Errorf("encode page token: %w", err)
	}
	return records, next, nil
}

// GetByBundleIDForUser is the point lookup backing a payment detail screen.
// Returns store.ErrNotFound when the user has no row for the bundle.
func (v *HistoryView) GetByBundleIDForUser(ctx context.Context, userID, bundleID string) (*HistoryRecord, error) {
	result, err := v.items.QueryByAttr(ctx, HistoryTable, attrUserBundle, userBundleKey(userID, bundleID), 1, nil)
	if err != nil {
		return nil, fmt.Errorf("query history for user %s bundle %s: %w", userID, bundleID, err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("history for user %s bundle %s: %w", userID, bundleID, store.ErrNotFound)
	}
	records, err := decodeHistoryItems(result.Items[:1])
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

func decodeHistoryItems(items []store.Item) ([]HistoryRecord, error) {
	records := make([]HistoryRecord, 0, len(items))
	for _, item := range items {
		var r HistoryRecord
		if err := json.Unmarshal([]byte(item[attrRecord]), &r); err != nil {
			return nil, fmt.Errorf("decode history record %s: %w", item[store.AttrPK], err)
		}
		records = append(records, r)
	}
	return records, nil
}
