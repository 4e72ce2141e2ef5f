// Package ratelimit paces outbound chain RPC calls so the watchers' sweep
// bursts and the broadcaster cannot exhaust the node provider's quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/appmancer/foxy-backend/internal/metrics"
)

// Limiter wraps a token-bucket rate limiter for chain RPC calls.
type Limiter struct {
	limiter *rate.Limiter
	network string
}

// NewLimiter allows rps requests per second with a burst capacity of burst
// tokens.
func NewLimiter(rps float64, burst int, network string) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		network: network,
	}
}

// Wait blocks until the limiter releases one token, or ctx is done. Reserve
// is used so exactly one token is consumed per call.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.RPCRateLimitWaits.WithLabelValues(l.network).Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
