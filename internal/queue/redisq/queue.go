// Package redisq backs the broadcast queue with a Redis stream. Receives use
// XRANGE rather than consumer groups: entries are peeked, never claimed, which
// matches the zero-visibility-timeout contract the broadcaster is written
// against. Delete is XDEL by entry id.
package redisq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/appmancer/foxy-backend/internal/queue"
)

const bodyField = "body"

type Queue struct {
	client *redis.Client
	stream string
}

// New connects to redis and returns a stream-backed queue.
func New(url, stream string) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Queue{client: client, stream: stream}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, req *queue.BroadcastRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode broadcast request: %w", err)
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{bodyField: body},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", q.stream, err)
	}
	return nil
}

func (q *Queue) ReceiveBatch(ctx context.Context, max int) ([]queue.Message, error) {
	if max <= 0 {
		return nil, nil
	}
	entries, err := q.client.XRangeN(ctx, q.stream, "-", "+", int64(max)).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", q.stream, err)
	}

	msgs := make([]queue.Message, 0, len(entries))
	for _, entry := range entries {
		body, ok := entry.Values[bodyField].(string)
		if !ok {
			continue
		}
		msgs = append(msgs, queue.Message{
			Body:          []byte(body),
			ReceiptHandle: entry.ID,
		})
	}
	return msgs, nil
}

func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	if err := q.client.XDel(ctx, q.stream, receiptHandle).Err(); err != nil {
		return fmt.Errorf("xdel %s %s: %w", q.stream, receiptHandle, err)
	}
	return nil
}
