package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedPayloadHash_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "raw eip1559 style payload",
			payload: "0xf86b0f843b9aca00825208941111111111111111111111111111111111111111872386f26fc1000080820a95a0abcd",
			want:    "0x9b383c8adfa4042863adc1b308aef291867f3c49147f36b1d031ee4ff4c77d27",
		},
		{
			name:    "without 0x prefix",
			payload: "deadbeef",
			want:    "0xd4fd4e189132273036449fc9e11198c739161b4c0116a9a2dccdfa1c492006f1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedPayloadHash(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignedPayloadHash_Deterministic(t *testing.T) {
	a, err := SignedPayloadHash("0xdeadbeef")
	require.NoError(t, err)
	b, err := SignedPayloadHash("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSignedPayloadHash_Invalid(t *testing.T) {
	_, err := SignedPayloadHash("0xzz")
	assert.Error(t, err)

	_, err = SignedPayloadHash("")
	assert.Error(t, err)

	_, err = SignedPayloadHash("0x")
	assert.Error(t, err)
}

func TestWithSignedTx_DerivesHash(t *testing.T) {
	tx := Transaction{ID: "tx-1", Status: TxStatusCreated}

	signed := tx.WithSignedTx("0xdeadbeef")

	assert.Equal(t, "0xdeadbeef", signed.SignedTx)
	assert.Equal(t, "0xd4fd4e189132273036449fc9e11198c739161b4c0116a9a2dccdfa1c492006f1", signed.TxHash)

	// Original is untouched.
	assert.Empty(t, tx.SignedTx)
	assert.Empty(t, tx.TxHash)
}

func TestWithSignedTx_BadPayloadLeavesHashEmpty(t *testing.T) {
	tx := Transaction{ID: "tx-1"}.WithSignedTx("0xzz")
	assert.Equal(t, "0xzz", tx.SignedTx)
	assert.Empty(t, tx.TxHash)
}

func TestTransactionCopySemantics(t *testing.T) {
	tx := Transaction{ID: "tx-1", Status: TxStatusSigned}

	confirmed := tx.WithStatus(TxStatusConfirmed).WithBlockNumber(42).WithReceiptStatus(ReceiptStatusSuccess)

	assert.Equal(t, TxStatusSigned, tx.Status)
	assert.Nil(t, tx.BlockNumber)

	assert.Equal(t, TxStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.BlockNumber)
	assert.Equal(t, uint64(42), *confirmed.BlockNumber)
	require.NotNil(t, confirmed.ReceiptStatus)
	assert.Equal(t, 1, *confirmed.ReceiptStatus)
}

func TestTxStatusTerminal(t *testing.T) {
	assert.False(t, TxStatusCreated.Terminal())
	assert.False(t, TxStatusSigned.Terminal())
	assert.False(t, TxStatusPending.Terminal())
	assert.True(t, TxStatusConfirmed.Terminal())
	assert.True(t, TxStatusFailed.Terminal())
	assert.True(t, TxStatusCancelled.Terminal())
	assert.True(t, TxStatusError.Terminal())
}
