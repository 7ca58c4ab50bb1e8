package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// LockByID reads the row FOR UPDATE; tx must be a transaction handle.
	LockByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// AddBalance applies delta atomically; negative deltas debit.
	AddBalance(ctx context.Context, tx Tx, id string, delta decimal.Decimal) error
}

type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PromoCode) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PromoCode, error)
	// Decrement lowers uses_left by one; ErrNotFound when none are left.
	Decrement(ctx context.Context, tx Tx, id string) error
}
