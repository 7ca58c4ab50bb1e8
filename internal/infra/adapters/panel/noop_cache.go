package panel

import (
	"context"

	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.AccountCache = NoopCache{}

// NoopCache is used when redis is not configured; every read is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*model.Entitlement, bool, error) {
	return nil, false, nil
}
func (NoopCache) Set(context.Context, *model.Entitlement) error { return nil }
func (NoopCache) Invalidate(context.Context, string) error      { return nil }
