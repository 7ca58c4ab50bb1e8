package panel

import (
	"context"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.EntitlementClient = (*CachedClient)(nil)

// CachedClient serves snapshot reads from the account cache. Cache failures
// fall through to the panel. Fulfillment must use the uncached client.
type CachedClient struct {
	inner adapter.EntitlementClient
	cache adapter.AccountCache
	log   *zerolog.Logger
}

func NewCachedClient(inner adapter.EntitlementClient, cache adapter.AccountCache, logger *zerolog.Logger) *CachedClient {
	l := logger.With().Str("component", "panel_cache").Logger()
	return &CachedClient{inner: inner, cache: cache, log: &l}
}

func (c *CachedClient) GetAccount(ctx context.Context, accountID string) (*model.Entitlement, error) {
	if e, ok, err := c.cache.Get(ctx, accountID); err != nil {
		c.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache read failed")
	} else if ok {
		return e, nil
	}

	e, err := c.inner.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, e); err != nil {
		c.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache write failed")
	}
	return e, nil
}

func (c *CachedClient) PatchAccount(ctx context.Context, accountID string, patch model.AccountPatch) error {
	if err := c.inner.PatchAccount(ctx, accountID, patch); err != nil {
		return err
	}
	if err := c.cache.Invalidate(ctx, accountID); err != nil {
		c.log.Warn().Err(err).Str("account_id", accountID).Msg("account cache invalidate failed")
	}
	return nil
}

func (c *CachedClient) CreateAccount(ctx context.Context, identity string) (string, error) {
	return c.inner.CreateAccount(ctx, identity)
}
