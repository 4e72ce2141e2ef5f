package model

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// TxStatus is the lifecycle status of a single leg.
type TxStatus string

const (
	TxStatusCreated   TxStatus = "Created"
	TxStatusSigned    TxStatus = "Signed"
	TxStatusPending   TxStatus = "Pending"
	TxStatusConfirmed TxStatus = "Confirmed"
	TxStatusFailed    TxStatus = "Failed"
	TxStatusCancelled TxStatus = "Cancelled"
	TxStatusError     TxStatus = "Error"
)

func (s TxStatus) String() string {
	return string(s)
}

// Terminal reports whether the leg can no longer advance.
func (s TxStatus) Terminal() bool {
	switch s {
	case TxStatusConfirmed, TxStatusFailed, TxStatusCancelled, TxStatusError:
		return true
	}
	return false
}

// ReceiptStatusSuccess is the EVM receipt status for successful execution.
const ReceiptStatusSuccess = 1

// Transaction is one leg of a payment bundle. It is a value object: every
// mutation returns a new copy, so bundle snapshots embedded in the event log
// can be shared without aliasing surprises.
type Transaction struct {
	ID               string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	SenderAddress    string    `json:"sender_address"`
	RecipientAddress string    `json:"recipient_address"`
	Value            string    `json:"value"` // base units, decimal string (u128 range)
	Token            TokenType `json:"token_type"`
	Status           TxStatus  `json:"status"`

	SignedTx string `json:"signed_tx,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`

	GasPrice             uint64  `json:"gas_price,omitempty"`
	GasLimit             uint64  `json:"gas_limit,omitempty"`
	MaxFeePerGas         uint64  `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas uint64  `json:"max_priority_fee_per_gas,omitempty"`
	Nonce                uint64  `json:"nonce"`
	ChainID              uint64  `json:"chain_id"`
	BlockNumber          *uint64 `json:"block_number,omitempty"`
	ReceiptStatus        *int    `json:"receipt_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// WithStatus returns a copy of the leg with the status replaced.
func (t Transaction) WithStatus(status TxStatus) Transaction {
	t.Status = status
	return t
}

// WithSignedTx returns a copy carrying the signed payload and the hash
// derived from it. The hash derivation error is deliberately swallowed into
// an empty hash; callers that need the hash validate presence separately.
func (t Transaction) WithSignedTx(signed string) Transaction {
	t.SignedTx = signed
	if h, err := SignedPayloadHash(signed); err == nil {
		t.TxHash = h
	}
	return t
}

// WithBlockNumber returns a copy with the inclusion block recorded.
func (t Transaction) WithBlockNumber(block uint64) Transaction {
	t.BlockNumber = &block
	return t
}

// WithReceiptStatus returns a copy with the receipt execution status recorded.
func (t Transaction) WithReceiptStatus(status int) Transaction {
	t.ReceiptStatus = &status
	return t
}

// SignedPayloadHash derives the canonical transaction hash for a raw signed
// payload: keccak256 over the hex-decoded bytes, 0x-prefixed.
func SignedPayloadHash(signed string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signed, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signed payload: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty signed payload")
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(raw)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}
