//go:build !integration

package redis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	c := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = c.Close()
		mr.Close()
	})
	return mr, c
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniRedisClient(t)
	locker := NewLocker(client).WithRetry(2, 5*time.Millisecond)

	token, err := locker.TryLock(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := locker.TryLock(ctx, "k", time.Second); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired while held, got %v", err)
	}

	// a stale token must not release someone else's lock
	if err := locker.Unlock(ctx, "k", "not-the-token"); err != nil {
		t.Fatalf("unlock with wrong token: %v", err)
	}
	if _, err := locker.TryLock(ctx, "k", time.Second); err == nil {
		t.Fatal("lock was released by a foreign token")
	}

	if err := locker.Unlock(ctx, "k", token); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.TryLock(ctx, "k", time.Second); err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedisClient(t)
	locker := NewLocker(client).WithRetry(1, time.Millisecond)

	if _, err := locker.TryLock(ctx, "k", time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := locker.TryLock(ctx, "k", time.Second); err != nil {
		t.Fatalf("expected expired lock to be acquirable: %v", err)
	}
}

func TestAccountLocker(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedisClient(t)
	al := NewAccountLocker(NewLocker(client).WithRetry(1, time.Millisecond), 10*time.Second, newTestLogger())

	unlock, err := al.Lock(ctx, "acc-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists(AccountLockKey("acc-1")) {
		t.Fatal("expected lock key to exist")
	}
	if _, err := al.Lock(ctx, "acc-1"); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("expected contention error, got %v", err)
	}
	// other accounts are independent
	unlock2, err := al.Lock(ctx, "acc-2")
	if err != nil {
		t.Fatalf("lock other account: %v", err)
	}
	unlock2()

	unlock()
	if mr.Exists(AccountLockKey("acc-1")) {
		t.Fatal("expected lock key to be deleted on unlock")
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedisClient(t)
	rl := NewRateLimiter(client)
	key := UserActionKey("user-1", "reconcile")

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, key, 2, time.Minute)
		if err != nil || !ok {
			t.Fatalf("allow #%d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, key, 2, time.Minute)
	if err != nil || ok {
		t.Fatalf("expected third call to be blocked: ok=%v err=%v", ok, err)
	}

	mr.FastForward(61 * time.Second)
	ok, err = rl.Allow(ctx, key, 2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected window reset: ok=%v err=%v", ok, err)
	}
}

func TestAccountCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedisClient(t)
	cache := NewAccountCache(client, time.Minute)

	if _, ok, err := cache.Get(ctx, "acc-1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := &model.Entitlement{AccountID: "acc-1", ExpireAt: exp, Groups: []string{"g1"}, TrafficLimitBytes: 100 * model.GiB, DeviceLimit: 3}
	if err := cache.Set(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := cache.Get(ctx, "acc-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !got.ExpireAt.Equal(exp) || got.TrafficLimitBytes != in.TrafficLimitBytes || len(got.Groups) != 1 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	if err := cache.Invalidate(ctx, "acc-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("account:acc-1") {
		t.Fatal("expected key to be removed")
	}

	_ = mr.Set("account:acc-2", "{not json")
	if _, ok, err := cache.Get(ctx, "acc-2"); err != nil || ok {
		t.Fatalf("corrupt entries must read as a miss, got ok=%v err=%v", ok, err)
	}
}
