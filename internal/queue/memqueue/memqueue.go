// Package memqueue is an in-memory Queue for tests. It reproduces the
// peek-without-claim receive semantics of the redis backend.
package memqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/appmancer/foxy-backend/internal/queue"
)

type entry struct {
	id   string
	body []byte
}

type Queue struct {
	mu      sync.Mutex
	nextID  int
	entries []entry
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(_ context.Context, req *queue.BroadcastRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode broadcast request: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.entries = append(q.entries, entry{id: strconv.Itoa(q.nextID), body: body})
	return nil
}

func (q *Queue) ReceiveBatch(_ context.Context, max int) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	if max > 0 && n > max {
		n = max
	}
	msgs := make([]queue.Message, 0, n)
	for _, e := range q.entries[:n] {
		msgs = append(msgs, queue.Message{Body: append([]byte(nil), e.body...), ReceiptHandle: e.id})
	}
	return msgs, nil
}

func (q *Queue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.id == receiptHandle {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports the number of undeleted entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
