//go:build !integration

package memlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	l := NewKeyed()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "acc-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInside)
	}
	if l.Len() != 0 {
		t.Fatalf("expected entries to be released, %d left", l.Len())
	}
}

func TestKeyed_IndependentKeys(t *testing.T) {
	l := NewKeyed()
	ctx := context.Background()
	u1, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer u1()

	done := make(chan struct{})
	go func() {
		u2, err := l.Lock(ctx, "b")
		if err == nil {
			u2()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyed_ContextCancel(t *testing.T) {
	l := NewKeyed()
	unlock, _ := l.Lock(context.Background(), "a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	unlock() // idempotent
	if l.Len() != 0 {
		t.Fatalf("expected no tracked keys, got %d", l.Len())
	}
}
