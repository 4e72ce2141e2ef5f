package projection

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appmancer/foxy-backend/internal/domain/model"
	"github.com/appmancer/foxy-backend/internal/statemachine"
	"github.com/appmancer/foxy-backend/internal/store/memstore"
)

const (
	senderWallet    = "0x1111111111111111111111111111111111111111"
	recipientWallet = "0x2222222222222222222222222222222222222222"
	feeWallet       = "0x3333333333333333333333333333333333333333"
)

func testBundle(bundleID string) model.TransactionBundle {
	now := time.Now().UTC()
	return model.TransactionBundle{
		BundleID: bundleID,
		UserID:   "user-1",
		Status:   model.BundleInitiated,
		MainTx: model.Transaction{
			ID:               bundleID + "-main",
			UserID:           "user-1",
			SenderAddress:    senderWallet,
			RecipientAddress: recipientWallet,
			Value:            "1000",
			Token:            model.TokenETH,
			Status:           model.TxStatusCreated,
			ChainID:          8453,
		},
		FeeTx: model.Transaction{
			ID:               bundleID + "-fee",
			UserID:           "user-1",
			SenderAddress:    senderWallet,
			RecipientAddress: feeWallet,
			Value:            "100",
			Token:            model.TokenETH,
			Status:           model.TxStatusCreated,
			ChainID:          8453,
		},
		Metadata: &model.Metadata{
			DisplayCurrency: "GBP",
			FiatAmountMinor: 2500,
			Sender:          &model.PartyDetails{UserID: "user-1", Name: "Alice", Wallet: senderWallet},
			Recipient:       &model.PartyDetails{UserID: "user-2", Name: "Bob", Wallet: recipientWallet},
			Message:         "lunch",
			Quote:           &model.FeeQuote{ServiceFeeWei: "100", NetworkFeeWei: "21000", GasLimit: 21000, GasPrice: 1, ExchangeRate: 2150.0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// pendingMainEvent walks a fresh bundle to the point where the main leg has
// been broadcast and is awaiting confirmation.
func pendingMainEvent(t *testing.T, bundleID string) *model.TransactionEvent {
	t.Helper()
	initiate := statemachine.Initiate(testBundle(bundleID))
	sign, err := statemachine.Sign(initiate, "0xfee", "0xmain")
	require.NoError(t, err)
	broadcast, err := statemachine.Broadcast(sign, "0xaa")
	require.NoError(t, err)
	return broadcast
}

func TestStatusView_ProjectsBothLegs(t *testing.T) {
	items := memstore.New()
	view := NewStatusView(items, "testnet", slog.Default())
	ctx := context.Background()

	event := statemachine.Initiate(testBundle("b-1"))
	require.NoError(t, view.Apply(ctx, event))

	records, _, err := view.QueryByStatus(ctx, model.TxStatusCreated, model.LegMain, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1-main", records[0].TransactionID)
	assert.Equal(t, model.LegMain, records[0].Leg)

	records, _, err = view.QueryByStatus(ctx, model.TxStatusCreated, model.LegFee, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1-fee", records[0].TransactionID)
}

func TestStatusView_RowReplacedOnNewEvent(t *testing.T) {
	items := memstore.New()
	view := NewStatusView(items, "testnet", slog.Default())
	ctx := context.Background()

	event := pendingMainEvent(t, "b-1")
	require.NoError(t, view.Apply(ctx, event))

	// The main leg moved to Pending and carries a hash.
	records, _, err := view.QueryByStatus(ctx, model.TxStatusPending, model.LegMain, 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xaa", records[0].TxHash)

	// The old Signed row for the main leg is gone.
	records, _, err = view.QueryByStatus(ctx, model.TxStatusSigned, model.LegMain, 10, "")
	require.NoError(t, err)
	assert.Empty(t, records)

	// The fee leg is still Signed, not Pending.
	records, _, err = view.QueryByStatus(ctx, model.TxStatusPending, model.LegFee, 10, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStatusView_QueryByStatusPagination(t *testing.T) {
	items := memstore.New()
	view := NewStatusView(items, "testnet", slog.Default())
	ctx := context.Background()

	for _, id := range []string{"b-1", "b-2", "b-3"} {
		require.NoError(t, view.Apply(ctx, pendingMainEvent(t, id)))
	}

	page1, token, err := view.QueryByStatus(ctx, model.TxStatusPending, model.LegMain, 2, "")
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotEmpty(t, token)

	page2, token, err := view.QueryByStatus(ctx, model.TxStatusPending, model.LegMain, 2, token)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Empty(t, token)

	seen := make(map[string]bool)
	for _, r := range append(page1, page2...) {
		seen[r.TransactionID] = true
	}
	assert.Len(t, seen, 3)
}

func TestStatusView_QueryByWallet(t *testing.T) {
	items := memstore.New()
	view := NewStatusView(items, "testnet", slog.Default())
	ctx := context.Background()

	require.NoError(t, view.Apply(ctx, statemachine.Initiate(testBundle("b-1"))))

	// The sender wallet appears on both legs.
	records, err := view.QueryByWallet(ctx, senderWallet, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// The recipient wallet appears only on the main leg.
	records, err = view.QueryByWallet(ctx, recipientWallet, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b-1-main", records[0].TransactionID)

	records, err = view.QueryByWallet(ctx, "0xdead", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStatusView_QueryByWalletDedupes(t *testing.T) {
	items := memstore.New()
	view := NewStatusView(items, "testnet", slog.Default())
	ctx := context.Background()

	// Self-payment: sender and recipient wallet are the same address.
	bundle := testBundle("b-1")
	bundle.MainTx.RecipientAddress = senderWallet
	require.NoError(t, view.Apply(ctx, statemachine.Initiate(bundle)))

	records, err := view.QueryByWallet(ctx, senderWallet, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2, "main and fee leg once each, no duplicate main row")
}
