package adapter

import (
	"context"

	"vpn-billing/internal/domain/model"
)

// EntitlementClient talks to the VPN panel. PatchAccount sets absolute values.
type EntitlementClient interface {
	GetAccount(ctx context.Context, accountID string) (*model.Entitlement, error)
	PatchAccount(ctx context.Context, accountID string, patch model.AccountPatch) error
	CreateAccount(ctx context.Context, identity string) (accountID string, err error)
}

// AccountCache holds panel snapshots for read paths.
type AccountCache interface {
	Get(ctx context.Context, accountID string) (*model.Entitlement, bool, error)
	Set(ctx context.Context, e *model.Entitlement) error
	Invalidate(ctx context.Context, accountID string) error
}

// AccountLocker serializes read-compute-push sequences per panel account.
type AccountLocker interface {
	Lock(ctx context.Context, accountID string) (unlock func(), err error)
}

// TaskQueue runs detached work after the request has returned.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}
