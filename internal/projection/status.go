// Package projection maintains the read views derived from the event log.
// Views are rebuilt row-by-row on every event write and are eventually
// consistent with the log; they answer queries the log's key layout cannot.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/metrics"
	"github.com/appmancer/foxy-backend/internal/store"
)

// StatusTable is the status view table name.
const StatusTable = "status_view"

const (
	attrRecord    = "Record"
	attrStatus    = "Status"
	attrStatusLeg = "StatusLeg"
	attrSender    = "Sender"
	attrRecipient = "Recipient"
)

// StatusIndexedAttrs lists the attributes the status view table needs
// secondary indexes on.
var StatusIndexedAttrs = []string{attrStatus, attrStatusLeg, attrSender, attrRecipient}

// StatusRecord is the current state of one transaction leg.
type StatusRecord struct {
	TransactionID    string         `json:"transaction_id"`
	BundleID         string         `json:"bundle_id"`
	UserID           string         `json:"user_id"`
	Leg              model.Leg      `json:"leg"`
	Status           model.TxStatus `json:"status"`
	TxHash           string         `json:"tx_hash,omitempty"`
	BlockNumber      *uint64        `json:"block_number,omitempty"`
	SenderAddress    string         `json:"sender_address"`
	RecipientAddress string         `json:"recipient_address"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// StatusView keeps one row per transaction leg, indexed by status and by
// wallet so watchers and API reads avoid scanning the event log.
type StatusView struct {
	items   store.ItemStore
	network string
	logger  *slog.Logger
}

func NewStatusView(items store.ItemStore, network string, logger *slog.Logger) *StatusView {
	return &StatusView{items: items, network: network, logger: logger}
}

func (v *StatusView) Name() string { return "status" }

// Apply rewrites both legs' rows from the event's bundle snapshot.
func (v *StatusView) Apply(ctx context.Context, event *model.TransactionEvent) error {
	for _, leg := range []model.Leg{model.LegMain, model.LegFee} {
		if err := v.putLeg(ctx, event, leg); err != nil {
			return err
		}
		metrics.ProjectionUpdatesTotal.WithLabelValues(v.network, v.Name()).Inc()
	}
	return nil
}

func (v *StatusView) putLeg(ctx context.Context, event *model.TransactionEvent, leg model.Leg) error {
	tx := event.Snapshot.Leg(leg)
	record := StatusRecord{
		TransactionID:    tx.ID,
		BundleID:         event.BundleID,
		UserID:           event.UserID,
		Leg:              leg,
		Status:           tx.Status,
		TxHash:           tx.TxHash,
		BlockNumber:      tx.BlockNumber,
		SenderAddress:    tx.SenderAddress,
		RecipientAddress: tx.RecipientAddress,
		UpdatedAt:        event.Snapshot.UpdatedAt,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode status record: %w", err)
	}

	item := store.Item{
		store.AttrPK:  "Tx#" + tx.ID,
		store.AttrSK:  "Status",
		attrRecord:    string(payload),
		attrStatus:    tx.Status.String(),
		attrStatusLeg: statusLegKey(tx.Status, leg),
		attrSender:    tx.SenderAddress,
		attrRecipient: tx.RecipientAddress,
	}
	if err := v.items.PutItem(ctx, StatusTable, item); err != nil {
		return fmt.Errorf("put status row for tx %s: %w", tx.ID, err)
	}
	return nil
}

func statusLegKey(status model.TxStatus, leg model.Leg) string {
	return status.String() + "#" + leg.String()
}

// QueryByStatus returns a page of legs currently in the given status,
// restricted to one leg. The returned token resumes the scan.
func (v *StatusView) QueryByStatus(ctx context.Context, status model.TxStatus, leg model.Leg, limit int, pageToken string) ([]StatusRecord, string, error) {
	startKey, err := store.DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("decode page token: %w", err)
	}
	result, err := v.items.QueryByAttr(ctx, StatusTable, attrStatusLeg, statusLegKey(status, leg), limit, startKey)
	if err != nil {
		return nil, "", fmt.Errorf("query status view by status %s/%s: %w", status, leg, err)
	}
	records, err := decodeStatusItems(result.Items)
	if err != nil {
		return nil, "", err
	}
	next, err := store.EncodePageToken(result.LastKey)
	if err != nil {
		return nil, "", fmt.Errorf("encode page token: %w", err)
	}
	return records, next, nil
}

// QueryByWallet returns legs where the wallet is sender or recipient, newest
// first. The two index scans are merged; the merged result is not paginated,
// limit bounds each side of the union.
func (v *StatusView) QueryByWallet(ctx context.Context, wallet string, limit int) ([]StatusRecord, error) {
	seen := make(map[string]struct{})
	var records []StatusRecord
	for _, attr := range []string{attrSender, attrRecipient} {
		result, err := v.items.QueryByAttr(ctx, StatusTable, attr, wallet, limit, nil)
		if err != nil {
			return nil, fmt.Errorf("query status view by wallet: %w", err)
		}
		page, err := decodeStatusItems(result.Items)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			if _, ok := seen[r.TransactionID]; ok {
				continue
			}
			seen[r.TransactionID] = struct{}{}
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

func decodeStatusItems(items []store.Item) ([]StatusRecord, error) {
	records := make([]StatusRecord, 0, len(items))
	for _, item := range items {
		var r StatusRecord
		if err := json.Unmarshal([]byte(item[attrRecord]), &r); err != nil {
			return nil, fmt.Errorf("decode status record %s: %w", item[store.AttrPK], err)
		}
		records = append(records, r)
	}
	return records, nil
}
