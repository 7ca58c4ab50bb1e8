// Package memlock provides per-key mutual exclusion inside one process.
package memlock

import (
	"context"
	"sync"

	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.AccountLocker = (*Keyed)(nil)

type entry struct {
	ch   chan struct{}
	refs int
}

// Keyed hands out one lock per key; entries are dropped when no goroutine holds or waits on them.
type Keyed struct {
	mu sync.Mutex
	m  map[string]*entry
}

func NewKeyed() *Keyed {
	return &Keyed{m: make(map[string]*entry)}
}

func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *Keyed) release(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.m, key)
	}
	k.mu.Unlock()
}

// Len reports how many keys are currently tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
