package repository

import (
	"context"

	"vpn-billing/internal/domain/model"
)

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	// ListByUser returns the user's accounts oldest first.
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Account, error)
	FindByProvisioningOrder(ctx context.Context, tx Tx, orderID string) (*model.Account, error)
}
