// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var (
	_ Locker                = (*RedisLocker)(nil)
	_ adapter.AccountLocker = (*AccountLocker)(nil)
)

type RedisLocker struct {
	cli     *redis.Client
	tries   int
	backoff time.Duration
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, tries: 5, backoff: 50 * time.Millisecond}
}

// WithRetry sets how long TryLock keeps polling a held key.
func (l *RedisLocker) WithRetry(tries int, backoff time.Duration) *RedisLocker {
	if tries > 0 {
		l.tries = tries
	}
	if backoff > 0 {
		l.backoff = backoff
	}
	return l
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.tries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err == nil && ok {
			return token, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLockNotAcquired, lastErr)
	}
	return "", domain.ErrLockNotAcquired
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}

// AccountLocker adapts RedisLocker to the per-account lock port so that
// fulfillment on several instances serializes on the same panel account.
type AccountLocker struct {
	locker Locker
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewAccountLocker(locker Locker, ttl time.Duration, logger *zerolog.Logger) *AccountLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	l := logger.With().Str("component", "account_locker").Logger()
	return &AccountLocker{locker: locker, ttl: ttl, log: &l}
}

func AccountLockKey(accountID string) string { return "lock:account:" + accountID }

func (a *AccountLocker) Lock(ctx context.Context, accountID string) (func(), error) {
	key := AccountLockKey(accountID)
	token, err := a.locker.TryLock(ctx, key, a.ttl)
	if err != nil {
		return nil, err
	}
	return func() {
		// unlock must run even when the request context is already cancelled
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.locker.Unlock(uctx, key, token); err != nil {
			a.log.Warn().Err(err).Str("account_id", accountID).Msg("unlock failed; key will expire")
		}
	}, nil
}
