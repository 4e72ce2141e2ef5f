package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fixedClock(b *Breaker) *time.Time {
	now := time.Unix(1_700_000_000, 0)
	b.clock = func() time.Time { return now }
	return &now
}

func TestNew_Defaults(t *testing.T) {
	b := New(Options{})
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 5, b.opts.MaxFailures)
	assert.Equal(t, 2, b.opts.ProbeSuccesses)
	assert.Equal(t, 30*time.Second, b.opts.Cooldown)
}

func TestDo_ClosedPassesThrough(t *testing.T) {
	b := New(Options{})
	require.NoError(t, b.Do(func() error { return nil }))
	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
}

func TestDo_TripsAfterMaxFailures(t *testing.T) {
	b := New(Options{MaxFailures: 3, Cooldown: time.Hour})
	fixedClock(b)

	for i := 0; i < 3; i++ {
		_ = b.Do(func() error { return errBoom })
	}
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not invoke fn")
}

func TestDo_SuccessResetsFailureRun(t *testing.T) {
	b := New(Options{MaxFailures: 3, Cooldown: time.Hour})
	fixedClock(b)

	_ = b.Do(func() error { return errBoom })
	_ = b.Do(func() error { return errBoom })
	require.NoError(t, b.Do(func() error { return nil }))
	_ = b.Do(func() error { return errBoom })
	_ = b.Do(func() error { return errBoom })

	assert.Equal(t, Closed, b.State())
}

func TestDo_HalfOpenAfterCooldown(t *testing.T) {
	b := New(Options{MaxFailures: 1, Cooldown: time.Minute, ProbeSuccesses: 2})
	now := fixedClock(b)

	_ = b.Do(func() error { return errBoom })
	require.Equal(t, Open, b.State())

	*now = now.Add(2 * time.Minute)

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, HalfOpen, b.State(), "one probe success is not enough")

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
}

func TestDo_HalfOpenReopensOnFailure(t *testing.T) {
	b := New(Options{MaxFailures: 1, Cooldown: time.Minute})
	now := fixedClock(b)

	_ = b.Do(func() error { return errBoom })
	*now = now.Add(2 * time.Minute)

	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.Equal(t, Open, b.State())
}

func TestOnTransition(t *testing.T) {
	var transitions []struct{ from, to State }
	b := New(Options{
		MaxFailures:    2,
		ProbeSuccesses: 1,
		Cooldown:       time.Minute,
		OnTransition: func(from, to State) {
			transitions = append(transitions, struct{ from, to State }{from, to})
		},
	})
	now := fixedClock(b)

	_ = b.Do(func() error { return errBoom })
	_ = b.Do(func() error { return errBoom })
	require.Len(t, transitions, 1)
	assert.Equal(t, Closed, transitions[0].from)
	assert.Equal(t, Open, transitions[0].to)

	*now = now.Add(2 * time.Minute)
	require.NoError(t, b.Do(func() error { return nil }))
	require.Len(t, transitions, 3)
	assert.Equal(t, HalfOpen, transitions[1].to)
	assert.Equal(t, Closed, transitions[2].to)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestDo_Concurrent(t *testing.T) {
	// Exercised under -race; asserts only that the breaker stays coherent.
	b := New(Options{MaxFailures: 10, ProbeSuccesses: 5, Cooldown: time.Millisecond})

	const goroutines = 16
	const iterations = 400

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if id%2 == 0 {
					_ = b.Do(func() error { return nil })
				} else {
					_ = b.Do(func() error { return errBoom })
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Contains(t, []State{Closed, Open, HalfOpen}, b.State())
}
