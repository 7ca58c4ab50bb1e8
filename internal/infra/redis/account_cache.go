package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/infra/metrics"
)

var _ adapter.AccountCache = (*AccountCache)(nil)

// AccountCache keeps panel snapshots for read endpoints. Fulfillment never
// reads from it; it only invalidates after a successful push.
type AccountCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewAccountCache(client RedisClient, ttl time.Duration) *AccountCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AccountCache{client: client, ttl: ttl}
}

func accountKey(id string) string { return "account:" + id }

func (c *AccountCache) Get(ctx context.Context, accountID string) (*model.Entitlement, bool, error) {
	data, err := c.client.Get(ctx, accountKey(accountID))
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("account", "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e model.Entitlement
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		metrics.IncCacheRequest("account", "miss")
		return nil, false, nil
	}
	metrics.IncCacheRequest("account", "hit")
	return &e, true, nil
}

func (c *AccountCache) Set(ctx context.Context, e *model.Entitlement) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, accountKey(e.AccountID), data, c.ttl)
}

func (c *AccountCache) Invalidate(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, accountKey(accountID))
}
