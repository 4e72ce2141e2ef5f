package model

import (
	"fmt"
	"time"
)

// EventType names a lifecycle step recorded in the event log.
type EventType string

const (
	EventInitiate  EventType = "Initiate"
	EventSign      EventType = "Sign"
	EventBroadcast EventType = "Broadcast"
	EventConfirm   EventType = "Confirm"
	EventFail      EventType = "Fail"
	EventCancel    EventType = "Cancel"
	EventError     EventType = "Error"
)

func (e EventType) String() string {
	return string(e)
}

// ParseEventType converts a stored event type string back to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventInitiate, EventSign, EventBroadcast, EventConfirm,
		EventFail, EventCancel, EventError:
		return EventType(s), nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// TransactionEvent is one immutable record in the append-only bundle log.
// EventID is assigned by the store at persist time; an empty EventID is the
// "not yet durable" sentinel. BundleSnapshot holds the entire bundle as it
// existed immediately after this event, so reading current state never
// requires replay: the latest event is the state.
type TransactionEvent struct {
	EventID      string            `json:"event_id"`
	BundleID     string            `json:"bundle_id"`
	UserID       string            `json:"user_id"`
	Type         EventType         `json:"event_type"`
	Leg          *Leg              `json:"leg,omitempty"` // absent for bundle-wide events
	BundleStatus BundleStatus      `json:"bundle_status"`
	TxStatus     *TxStatus         `json:"transaction_status,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Snapshot     TransactionBundle `json:"bundle_snapshot"`
}

// NewEvent assembles an unpersisted event around a bundle snapshot.
func NewEvent(eventType EventType, leg *Leg, txStatus *TxStatus, snapshot TransactionBundle) *TransactionEvent {
	return &TransactionEvent{
		BundleID:     snapshot.BundleID,
		UserID:       snapshot.UserID,
		Type:         eventType,
		Leg:          leg,
		BundleStatus: snapshot.Status,
		TxStatus:     txStatus,
		CreatedAt:    time.Now().UTC(),
		Snapshot:     snapshot,
	}
}
