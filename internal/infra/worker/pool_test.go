//go:build !integration

package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestPool_RunsTasks(t *testing.T) {
	p := NewPool(2, newTestLogger())
	p.Start(context.Background())

	var n int32
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		if err := p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			done <- struct{}{}
			return nil
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("tasks did not complete")
		}
	}
	p.Stop()
	if atomic.LoadInt32(&n) != 10 {
		t.Fatalf("expected 10 runs, got %d", n)
	}
}

func TestPool_SurvivesFailingAndPanickingTasks(t *testing.T) {
	p := NewPool(1, newTestLogger())
	p.Start(context.Background())

	_ = p.Submit(func(ctx context.Context) error { return errors.New("boom") })
	_ = p.Submit(func(ctx context.Context) error { panic("kaboom") })

	ran := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) error { close(ran); return nil })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a failing task")
	}
	p.Stop()
}

func TestPool_SubmitRules(t *testing.T) {
	p := NewPool(1, newTestLogger())
	if err := p.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Fatalf("expected ErrNilTask, got %v", err)
	}

	// not started: the buffer fills up and further submits are dropped
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = p.Submit(func(ctx context.Context) error { return nil })
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	p.Start(context.Background())
	p.Stop()
	if err := p.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
