package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var sweeps atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, "test", "testnet", time.Millisecond, testLogger(), func(context.Context) error {
			sweeps.Add(1)
			return nil
		})
	}()

	// Let a few sweeps happen, then stop.
	assert.Eventually(t, func() bool { return sweeps.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestRun_SweepErrorsDoNotStopLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sweeps atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, "test", "testnet", time.Millisecond, testLogger(), func(context.Context) error {
			sweeps.Add(1)
			return errors.New("rpc down")
		})
	}()

	assert.Eventually(t, func() bool { return sweeps.Load() >= 3 }, time.Second, time.Millisecond,
		"loop should keep ticking past sweep errors")
	cancel()
	<-done
}
