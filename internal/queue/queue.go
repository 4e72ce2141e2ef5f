// Package queue defines the broadcast work queue the API layer feeds and the
// broadcaster drains. Delivery is at-least-once and receives do not claim
// exclusivity: entries stay visible to other consumers until deleted, so
// idempotency comes from the state machine's transition guards rather than
// the queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// BroadcastRequest identifies a bundle that has a leg ready to broadcast.
type BroadcastRequest struct {
	BundleID string `json:"bundle_id"`
	UserID   string `json:"user_id"`
}

// Message is one received queue entry. ReceiptHandle is whatever the backend
// needs to delete the entry; callers treat it as opaque.
type Message struct {
	Body          []byte
	ReceiptHandle string
}

// Request decodes the message body.
func (m *Message) Request() (*BroadcastRequest, error) {
	var req BroadcastRequest
	if err := json.Unmarshal(m.Body, &req); err != nil {
		return nil, fmt.Errorf("decode broadcast request: %w", err)
	}
	if req.BundleID == "" {
		return nil, fmt.Errorf("broadcast request missing bundle_id")
	}
	return &req, nil
}

// Queue is the work-queue capability surface.
type Queue interface {
	// Enqueue appends a broadcast request.
	Enqueue(ctx context.Context, req *BroadcastRequest) error

	// ReceiveBatch returns up to max pending messages without claiming
	// them; redelivery on a later receive is expected behavior.
	ReceiveBatch(ctx context.Context, max int) ([]Message, error)

	// Delete acknowledges a message so it is never delivered again.
	Delete(ctx context.Context, receiptHandle string) error
}
