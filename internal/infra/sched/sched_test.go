//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockReconcileUC struct {
	usecase.ReconcileUseCase
	olderThan time.Duration
	limit     int
}

func (m *mockReconcileUC) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (usecase.ReconcileResult, error) {
	m.olderThan, m.limit = olderThan, limit
	return usecase.ReconcileResult{Checked: 1}, nil
}

type mockPaymentRepo struct {
	repository.PaymentRepository
	cutoff time.Time
	n      int64
	err    error
}

func (m *mockPaymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	m.cutoff = olderThan
	return m.n, m.err
}

func TestJob(t *testing.T) {
	t.Run("should run on every tick until stopped", func(t *testing.T) {
		var runs int32
		job := NewJob("count", 10*time.Millisecond, 0, func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		}, newTestLogger())

		job.Start(context.Background())
		job.Start(context.Background())
		time.Sleep(55 * time.Millisecond)
		job.Stop()
		seen := atomic.LoadInt32(&runs)
		time.Sleep(25 * time.Millisecond)

		if seen < 2 {
			t.Fatalf("expected several runs, got %d", seen)
		}
		if atomic.LoadInt32(&runs) != seen {
			t.Fatal("job kept running after Stop")
		}
	})

	t.Run("should survive failing and panicking passes", func(t *testing.T) {
		job := NewJob("bad", time.Minute, time.Second, func(ctx context.Context) error {
			panic("boom")
		}, newTestLogger())
		job.RunOnce(context.Background())

		failing := NewJob("failing", time.Minute, time.Second, func(ctx context.Context) error {
			return errors.New("nope")
		}, newTestLogger())
		failing.RunOnce(context.Background())
	})

	t.Run("should bound each pass by the timeout", func(t *testing.T) {
		var deadline time.Time
		job := NewJob("deadline", time.Minute, 50*time.Millisecond, func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		}, newTestLogger())
		start := time.Now()
		job.RunOnce(context.Background())
		if deadline.IsZero() || deadline.Sub(start) > time.Second {
			t.Fatalf("unexpected deadline %v", deadline)
		}
	})
}

func TestPaymentReconciler_Run(t *testing.T) {
	uc := &mockReconcileUC{}
	r := NewPaymentReconciler(uc, 0, 0)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.olderThan != 10*time.Minute || uc.limit != defaultReconcileBatch {
		t.Errorf("unexpected arguments %s %d", uc.olderThan, uc.limit)
	}
}

func TestExpirySweeper_Run(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should expire with the configured cutoff", func(t *testing.T) {
		repo := &mockPaymentRepo{n: 3}
		s := NewExpirySweeper(repo, 24*time.Hour, newTestLogger())
		s.now = func() time.Time { return now }

		if err := s.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !repo.cutoff.Equal(now.Add(-24 * time.Hour)) {
			t.Errorf("unexpected cutoff %s", repo.cutoff)
		}
	})

	t.Run("should do nothing when disabled", func(t *testing.T) {
		repo := &mockPaymentRepo{}
		if err := NewExpirySweeper(repo, 0, newTestLogger()).Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !repo.cutoff.IsZero() {
			t.Error("repository must not be called")
		}
	})

	t.Run("should return repository errors", func(t *testing.T) {
		repo := &mockPaymentRepo{err: errors.New("db down")}
		if err := NewExpirySweeper(repo, time.Hour, newTestLogger()).Run(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
	})
}
