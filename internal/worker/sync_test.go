package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-jokes-backend/internal/domain"
	"github.com/tbourn/go-jokes-backend/internal/services"
)

type stubSyncer struct {
	calls atomic.Int64
	fn    func() (*domain.Joke, error)
}

func (s *stubSyncer) FetchAndStore(context.Context) (*domain.Joke, error) {
	s.calls.Add(1)
	return s.fn()
}

func TestSyncWorker_RunsCyclesDespiteErrors(t *testing.T) {
	// Every cycle fails; the loop must keep ticking regardless.
	s := &stubSyncer{fn: func() (*domain.Joke, error) {
		return nil, errors.New("kaboom")
	}}
	w := NewSyncWorker(s, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	if got := s.calls.Load(); got < 3 {
		t.Fatalf("expected at least 3 cycles despite errors, got %d", got)
	}
}

func TestSyncWorker_FirstCycleIsImmediate(t *testing.T) {
	s := &stubSyncer{fn: func() (*domain.Joke, error) {
		return &domain.Joke{ID: "j1", Text: "t"}, nil
	}}
	// Interval far longer than the test: only the immediate cycle can run.
	w := NewSyncWorker(s, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	if got := s.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 immediate cycle, got %d", got)
	}
}

func TestSyncWorker_StopsOnCancel(t *testing.T) {
	s := &stubSyncer{fn: func() (*domain.Joke, error) {
		return nil, services.ErrDuplicateJoke
	}}
	w := NewSyncWorker(s, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancellation")
	}
}

func TestSyncWorker_ShutdownCancellationNotCounted(t *testing.T) {
	before := testutil.ToFloat64(syncCycles.WithLabelValues("storage_error"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &stubSyncer{fn: func() (*domain.Joke, error) {
		// Simulate shutdown arriving mid-cycle.
		cancel()
		return nil, context.Canceled
	}}
	NewSyncWorker(s, time.Hour, zerolog.Nop()).Run(ctx)

	after := testutil.ToFloat64(syncCycles.WithLabelValues("storage_error"))
	if after != before {
		t.Fatalf("shutdown cancellation must not count as storage_error (before=%v after=%v)", before, after)
	}
}

func TestNewSyncWorker_DefaultInterval(t *testing.T) {
	w := NewSyncWorker(&stubSyncer{fn: func() (*domain.Joke, error) { return nil, nil }}, 0, zerolog.Nop())
	if w.interval != time.Hour {
		t.Fatalf("expected 1h default interval, got %v", w.interval)
	}
}
