package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleStatusTerminal(t *testing.T) {
	assert.False(t, BundleInitiated.Terminal())
	assert.False(t, BundleSigned.Terminal())
	assert.False(t, BundleMainConfirmed.Terminal())
	assert.True(t, BundleCompleted.Terminal())
	assert.True(t, BundleFailed.Terminal())
	assert.True(t, BundleCancelled.Terminal())
	assert.True(t, BundleErrored.Terminal())
}

func TestParseBundleStatus(t *testing.T) {
	got, err := ParseBundleStatus("MainConfirmed")
	require.NoError(t, err)
	assert.Equal(t, BundleMainConfirmed, got)

	_, err = ParseBundleStatus("Shipped")
	assert.Error(t, err)
}

func TestParseLeg(t *testing.T) {
	got, err := ParseLeg("Fee")
	require.NoError(t, err)
	assert.Equal(t, LegFee, got)

	_, err = ParseLeg("Side")
	assert.Error(t, err)
}

func TestParseEventType(t *testing.T) {
	got, err := ParseEventType("Broadcast")
	require.NoError(t, err)
	assert.Equal(t, EventBroadcast, got)

	_, err = ParseEventType("Reorg")
	assert.Error(t, err)
}

func TestBundleLegAccess(t *testing.T) {
	b := TransactionBundle{
		MainTx: Transaction{ID: "tx-main"},
		FeeTx:  Transaction{ID: "tx-fee"},
	}

	assert.Equal(t, "tx-main", b.Leg(LegMain).ID)
	assert.Equal(t, "tx-fee", b.Leg(LegFee).ID)
}

func TestBundleWithLeg(t *testing.T) {
	b := TransactionBundle{
		MainTx: Transaction{ID: "tx-main", Status: TxStatusCreated},
		FeeTx:  Transaction{ID: "tx-fee", Status: TxStatusCreated},
	}

	next := b.WithLeg(LegFee, b.FeeTx.WithStatus(TxStatusSigned))

	assert.Equal(t, TxStatusCreated, b.FeeTx.Status)
	assert.Equal(t, TxStatusSigned, next.FeeTx.Status)
	assert.Equal(t, TxStatusCreated, next.MainTx.Status)
	assert.False(t, next.UpdatedAt.IsZero())
}

func TestBundleWithStatus(t *testing.T) {
	b := TransactionBundle{Status: BundleInitiated}
	next := b.WithStatus(BundleSigned)

	assert.Equal(t, BundleInitiated, b.Status)
	assert.Equal(t, BundleSigned, next.Status)
}

func TestBundleJSONRoundTrip(t *testing.T) {
	block := uint64(42)
	b := TransactionBundle{
		BundleID: "b-1",
		UserID:   "user-1",
		Status:   BundleMainConfirmed,
		MainTx: Transaction{
			ID:          "tx-main",
			Value:       "340282366920938463463374607431768211455",
			Token:       TokenETH,
			Status:      TxStatusConfirmed,
			BlockNumber: &block,
			ChainID:     8453,
		},
		FeeTx: Transaction{ID: "tx-fee", Value: "100", Token: TokenETH, Status: TxStatusSigned},
		Metadata: &Metadata{
			DisplayCurrency: "GBP",
			FiatAmountMinor: 2500,
			Sender:          &PartyDetails{UserID: "user-1", Name: "Alice", Wallet: "0x1111"},
			Recipient:       &PartyDetails{UserID: "user-2", Name: "Bob", Wallet: "0x2222"},
			Quote:           &FeeQuote{ServiceFeeWei: "100", NetworkFeeWei: "42000", GasLimit: 21000},
		},
	}

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var got TransactionBundle
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, b.MainTx.Value, got.MainTx.Value)
	require.NotNil(t, got.MainTx.BlockNumber)
	assert.Equal(t, uint64(42), *got.MainTx.BlockNumber)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "Bob", got.Metadata.Recipient.Name)
	assert.Equal(t, uint64(2500), got.Metadata.FiatAmountMinor)
}

func TestTokenDecimals(t *testing.T) {
	assert.Equal(t, uint8(18), TokenETH.Decimals())
	assert.Equal(t, uint8(6), TokenUSDC.Decimals())
}

func TestNewUnsignedTransaction(t *testing.T) {
	tx := &Transaction{
		ID:                   "tx-main",
		RecipientAddress:     "0x2222222222222222222222222222222222222222",
		Value:                "340282366920938463463374607431768211455",
		Token:                TokenUSDC,
		GasLimit:             21000,
		MaxFeePerGas:         2_000_000_000,
		MaxPriorityFeePerGas: 1_000_000_000,
		Nonce:                7,
		ChainID:              8453,
	}

	u := NewUnsignedTransaction(tx)

	assert.Equal(t, uint8(2), u.TxType)
	assert.Equal(t, tx.RecipientAddress, u.To)
	// Full u128 range survives the string encoding.
	assert.Equal(t, "340282366920938463463374607431768211455", u.AmountBaseUnits)
	assert.Equal(t, "21000", u.GasLimit)
	assert.Equal(t, "2000000000", u.MaxFeePerGas)
	assert.Equal(t, "1000000000", u.MaxPriorityFeePerGas)
	assert.Equal(t, "7", u.Nonce)
	assert.Equal(t, "8453", u.ChainID)
	assert.Equal(t, TokenUSDC, u.Token)
	assert.Equal(t, uint8(6), u.TokenDecimals)
}
