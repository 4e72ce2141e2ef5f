// Package circuitbreaker guards outbound RPC dependencies. After a run of
// consecutive failures the breaker trips and rejects calls outright until a
// cooldown elapses, then lets probe calls through until enough succeed.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Options tune a Breaker. Zero values take defaults.
type Options struct {
	// MaxFailures is the consecutive failure count that trips the breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// ProbeSuccesses is the consecutive probe successes required to close.
	ProbeSuccesses int
	// OnTransition is invoked while the breaker lock is held. Keep it
	// cheap and never call back into the breaker from it.
	OnTransition func(from, to State)
}

type Breaker struct {
	mu        sync.Mutex
	opts      Options
	state     State
	failures  int
	successes int
	openedAt  time.Time
	clock     func() time.Time
}

func New(opts Options) *Breaker {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.ProbeSuccesses <= 0 {
		opts.ProbeSuccesses = 2
	}
	return &Breaker{opts: opts, clock: time.Now}
}

// Do runs fn under the breaker. When the breaker is open it returns ErrOpen
// without invoking fn. fn's error, if any, is returned unwrapped.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err == nil)
	return err
}

// State reports the breaker state, folding an expired cooldown into HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.clock().Sub(b.openedAt) >= b.opts.Cooldown {
		b.transition(HalfOpen)
	}
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		if b.clock().Sub(b.openedAt) < b.opts.Cooldown {
			return ErrOpen
		}
		b.transition(HalfOpen)
	}
	return nil
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.failures = 0
		if b.state == HalfOpen {
			b.successes++
			if b.successes >= b.opts.ProbeSuccesses {
				b.transition(Closed)
			}
		}
		return
	}
	b.failures++
	b.successes = 0
	b.openedAt = b.clock()
	if b.state == HalfOpen || (b.state == Closed && b.failures >= b.opts.MaxFailures) {
		b.transition(Open)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	if to == Closed {
		b.failures = 0
	}
	if b.opts.OnTransition != nil {
		b.opts.OnTransition(from, to)
	}
}
