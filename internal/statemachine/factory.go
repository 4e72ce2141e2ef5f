// Package statemachine holds the pure transition logic for payment bundles.
// Every function here is side-effect free: given the latest durable event and
// a new fact, it either constructs the next event (with a full bundle
// snapshot) or rejects the transition. Persistence is the caller's problem.
package statemachine

import (
	"errors"
	"fmt"

	"github.com/appmancer/foxy-backend/internal/domain/model"
)

var (
	// ErrInvalidTransition marks a fact that does not match the expected
	// prior state. Racing writers see this instead of a double-apply.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrMissingSignatureData marks a sign attempt without both payloads.
	ErrMissingSignatureData = errors.New("missing signature data")
)

// InvalidTransitionError wraps ErrInvalidTransition with the offending
// (event type, status) pair for log lines and API error payloads.
type InvalidTransitionError struct {
	Event  model.EventType
	Status model.BundleStatus
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot %s from (%s, %s)", e.Action, e.Event, e.Status)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalid(last *model.TransactionEvent, action string) error {
	return &InvalidTransitionError{Event: last.Type, Status: last.BundleStatus, Action: action}
}

// Initiate builds the first event for a freshly constructed bundle.
func Initiate(bundle model.TransactionBundle) *model.TransactionEvent {
	snapshot := bundle.WithStatus(model.BundleInitiated)
	return model.NewEvent(model.EventInitiate, nil, nil, snapshot)
}

// Sign transitions (Initiate, Initiated) -> Signed. Both legs' signed
// payloads must be supplied atomically; a bundle with one signed leg is not
// a state this system recognises.
func Sign(last *model.TransactionEvent, feeSignedTx, mainSignedTx string) (*model.TransactionEvent, error) {
	if last.Type != model.EventInitiate || last.BundleStatus != model.BundleInitiated {
		return nil, invalid(last, "sign")
	}
	if feeSignedTx == "" || mainSignedTx == "" {
		return nil, fmt.Errorf("%w: both fee and main signed payloads are required", ErrMissingSignatureData)
	}

	snapshot := last.Snapshot.
		WithLeg(model.LegFee, last.Snapshot.FeeTx.WithSignedTx(feeSignedTx).WithStatus(model.TxStatusSigned)).
		WithLeg(model.LegMain, last.Snapshot.MainTx.WithSignedTx(mainSignedTx).WithStatus(model.TxStatusSigned)).
		WithStatus(model.BundleSigned)

	status := model.TxStatusSigned
	return model.NewEvent(model.EventSign, nil, &status, snapshot), nil
}

// BroadcastableLeg infers which leg the broadcaster may submit next from the
// latest event. The ordering policy is fixed: the main leg settles before the
// fee leg is ever submitted, so (Sign, Signed) always means main and
// (Confirm, MainConfirmed) always means fee. Callers must not bypass this.
func BroadcastableLeg(last *model.TransactionEvent) (model.Leg, error) {
	switch {
	case last.Type == model.EventSign && last.BundleStatus == model.BundleSigned:
		return model.LegMain, nil
	case last.Type == model.EventConfirm && last.BundleStatus == model.BundleMainConfirmed:
		return model.LegFee, nil
	default:
		return "", invalid(last, "broadcast")
	}
}

// Broadcast records a successful chain submission for the inferred leg. The
// bundle status is unchanged until the confirmation watcher observes a
// receipt; only the leg moves, to Pending, carrying the submitted hash.
func Broadcast(last *model.TransactionEvent, txHash string) (*model.TransactionEvent, error) {
	leg, err := BroadcastableLeg(last)
	if err != nil {
		return nil, err
	}
	if txHash == "" {
		return nil, fmt.Errorf("%w: broadcast requires a transaction hash", ErrInvalidTransition)
	}

	tx := last.Snapshot.Leg(leg).WithStatus(model.TxStatusPending)
	tx.TxHash = txHash
	snapshot := last.Snapshot.WithLeg(leg, tx)

	status := model.TxStatusPending
	return model.NewEvent(model.EventBroadcast, &leg, &status, snapshot), nil
}

// Confirm records an observed receipt for a pending leg. A main confirmation
// advances the bundle to MainConfirmed; a fee confirmation completes it.
// Anything else, including a duplicate confirmation racing in from an
// overlapping poll cycle, finds a stale expectation and is rejected.
func Confirm(last *model.TransactionEvent, leg model.Leg, blockNumber uint64) (*model.TransactionEvent, error) {
	if last.Type != model.EventBroadcast || last.Leg == nil || *last.Leg != leg {
		return nil, invalid(last, "confirm "+leg.String())
	}

	var next model.BundleStatus
	switch {
	case leg == model.LegMain && last.BundleStatus == model.BundleSigned:
		next = model.BundleMainConfirmed
	case leg == model.LegFee && last.BundleStatus == model.BundleMainConfirmed:
		next = model.BundleCompleted
	default:
		return nil, invalid(last, "confirm "+leg.String())
	}
	if last.Snapshot.Leg(leg).Status != model.TxStatusPending {
		return nil, invalid(last, "confirm "+leg.String())
	}

	tx := last.Snapshot.Leg(leg).
		WithStatus(model.TxStatusConfirmed).
		WithBlockNumber(blockNumber).
		WithReceiptStatus(model.ReceiptStatusSuccess)
	snapshot := last.Snapshot.WithLeg(leg, tx).WithStatus(next)

	status := model.TxStatusConfirmed
	return model.NewEvent(model.EventConfirm, &leg, &status, snapshot), nil
}

// Fail records a terminal domain failure for a leg: the chain rejected the
// transaction or the receipt reported reverted execution. Legal from any
// non-terminal bundle state.
func Fail(last *model.TransactionEvent, leg model.Leg) (*model.TransactionEvent, error) {
	return terminal(last, leg, "fail", model.EventFail, model.BundleFailed, model.TxStatusFailed)
}

// Cancel records a user or system cancellation for a leg.
func Cancel(last *model.TransactionEvent, leg model.Leg) (*model.TransactionEvent, error) {
	return terminal(last, leg, "cancel", model.EventCancel, model.BundleCancelled, model.TxStatusCancelled)
}

// Error records a terminal system-level error for a leg.
func Error(last *model.TransactionEvent, leg model.Leg) (*model.TransactionEvent, error) {
	return terminal(last, leg, "error", model.EventError, model.BundleErrored, model.TxStatusError)
}

func terminal(last *model.TransactionEvent, leg model.Leg, action string, eventType model.EventType, bundleStatus model.BundleStatus, txStatus model.TxStatus) (*model.TransactionEvent, error) {
	if last.BundleStatus.Terminal() {
		return nil, invalid(last, action)
	}
	snapshot := last.Snapshot.
		WithLeg(leg, last.Snapshot.Leg(leg).WithStatus(txStatus)).
		WithStatus(bundleStatus)
	return model.NewEvent(eventType, &leg, &txStatus, snapshot), nil
}
