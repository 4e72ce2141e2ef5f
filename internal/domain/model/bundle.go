package model

import (
	"fmt"
	"time"
)

// BundleStatus is the lifecycle status of a whole payment bundle. It is
// monotonic except for the absorbing failure states.
type BundleStatus string

const (
	BundleInitiated     BundleStatus = "Initiated"
	BundleSigned        BundleStatus = "Signed"
	BundleMainConfirmed BundleStatus = "MainConfirmed"
	BundleCompleted     BundleStatus = "Completed"
	BundleFailed        BundleStatus = "Failed"
	BundleCancelled     BundleStatus = "Cancelled"
	BundleErrored       BundleStatus = "Errored"
)

func (s BundleStatus) String() string {
	return string(s)
}

// Terminal reports whether the bundle has reached an absorbing state.
func (s BundleStatus) Terminal() bool {
	switch s {
	case BundleCompleted, BundleFailed, BundleCancelled, BundleErrored:
		return true
	}
	return false
}

// ParseBundleStatus converts a stored status string back to a BundleStatus.
func ParseBundleStatus(s string) (BundleStatus, error) {
	switch BundleStatus(s) {
	case BundleInitiated, BundleSigned, BundleMainConfirmed, BundleCompleted,
		BundleFailed, BundleCancelled, BundleErrored:
		return BundleStatus(s), nil
	default:
		return "", fmt.Errorf("unknown bundle status %q", s)
	}
}

// Leg names one of the two transactions inside a bundle.
type Leg string

const (
	LegMain Leg = "Main"
	LegFee  Leg = "Fee"
)

func (l Leg) String() string {
	return string(l)
}

// ParseLeg converts a stored leg string back to a Leg.
func ParseLeg(s string) (Leg, error) {
	switch Leg(s) {
	case LegMain, LegFee:
		return Leg(s), nil
	default:
		return "", fmt.Errorf("unknown leg %q", s)
	}
}

// PartyDetails carries display information for one side of a payment.
type PartyDetails struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
}

// FeeQuote is the fee/gas/exchange-rate snapshot taken at quote time. It is
// retained on the bundle so history rows can show the numbers the user
// actually agreed to, not whatever the market looks like later.
type FeeQuote struct {
	ServiceFeeWei string  `json:"service_fee_wei"`
	NetworkFeeWei string  `json:"network_fee_wei"`
	GasLimit      uint64  `json:"gas_limit"`
	GasPrice      uint64  `json:"gas_price"`
	ExchangeRate  float64 `json:"exchange_rate"`
}

// Metadata is the optional display payload attached to a bundle.
type Metadata struct {
	DisplayCurrency string        `json:"display_currency"`
	FiatAmountMinor uint64        `json:"fiat_amount_minor"`
	Sender          *PartyDetails `json:"sender,omitempty"`
	Recipient       *PartyDetails `json:"recipient,omitempty"`
	Message         string        `json:"message,omitempty"`
	Quote           *FeeQuote     `json:"quote,omitempty"`
}

// TransactionBundle is the two-leg unit representing one user payment: a
// main value transfer plus a fee collection transfer, sharing one lifecycle.
type TransactionBundle struct {
	BundleID  string       `json:"bundle_id"`
	UserID    string       `json:"user_id"`
	Status    BundleStatus `json:"status"`
	FeeTx     Transaction  `json:"fee_tx"`
	MainTx    Transaction  `json:"main_tx"`
	Metadata  *Metadata    `json:"metadata,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Leg returns the named leg.
func (b *TransactionBundle) Leg(leg Leg) Transaction {
	if leg == LegFee {
		return b.FeeTx
	}
	return b.MainTx
}

// WithLeg returns a copy of the bundle with the named leg replaced and
// UpdatedAt refreshed.
func (b TransactionBundle) WithLeg(leg Leg, tx Transaction) TransactionBundle {
	if leg == LegFee {
		b.FeeTx = tx
	} else {
		b.MainTx = tx
	}
	b.UpdatedAt = time.Now().UTC()
	return b
}

// WithStatus returns a copy with the bundle status replaced and UpdatedAt
// refreshed.
func (b TransactionBundle) WithStatus(status BundleStatus) TransactionBundle {
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return b
}
