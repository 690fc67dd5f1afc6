package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := New(Options{ActiveInterval: time.Millisecond, IdleInterval: time.Millisecond}, zerolog.Nop())

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(context.Context) (int, error) {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return 0, nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Fatalf("cycle ran %d times, want at least 3", calls.Load())
	}
}

func TestRunUsesIdleIntervalWhenQuiet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(Options{ActiveInterval: time.Millisecond, IdleInterval: 250 * time.Millisecond}, zerolog.Nop())

	var calls atomic.Int32
	go sched.Run(ctx, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	// With a 250ms idle pause only a handful of quiet cycles fit in 100ms.
	time.Sleep(100 * time.Millisecond)
	cancel()
	if n := calls.Load(); n > 2 {
		t.Fatalf("quiet loop ran %d cycles in 100ms, idle pacing not applied", n)
	}
}

func TestRunUsesActiveIntervalAfterEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(Options{ActiveInterval: time.Millisecond, IdleInterval: time.Minute}, zerolog.Nop())

	var calls atomic.Int32
	go sched.Run(ctx, func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() < 5 {
		t.Fatalf("busy loop ran only %d cycles, active pacing not applied", calls.Load())
	}
}

func TestRunKeepsGoingAfterCycleError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := New(Options{ActiveInterval: time.Millisecond, IdleInterval: time.Millisecond}, zerolog.Nop())

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(context.Context) (int, error) {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return 0, errors.New("rpc unavailable")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Fatalf("cycle ran %d times after errors, want at least 3", calls.Load())
	}
}
