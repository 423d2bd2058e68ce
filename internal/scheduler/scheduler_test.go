package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestInvalidSchedule(t *testing.T) {
	s := New(func(context.Context) error { return nil })
	if err := s.Schedule("invalid-cron"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestStartWithoutSchedule(t *testing.T) {
	s := New(func(context.Context) error { return nil })
	if err := s.Start(context.Background(), false); err == nil {
		t.Error("expected error when no schedule is set")
	}
}

func TestScheduleReplacesPrevious(t *testing.T) {
	s := New(func(context.Context) error { return nil })
	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Schedule("@every 5m"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestRunNow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	s := New(func(context.Context) error {
		calls.Add(1)
		cancel()
		return errors.New("boom")
	})
	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	passes, failures := s.Stats()
	if passes != 1 || failures != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", passes, failures)
	}
}

func TestPassesDoNotOverlap(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning, calls := 0, 0, 0

	s := New(func(context.Context) error {
		mu.Lock()
		running++
		calls++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(2500 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})
	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx, false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Fatal("expected at least one pass")
	}
	if maxRunning != 1 {
		t.Errorf("max concurrent passes = %d, want 1", maxRunning)
	}
}
