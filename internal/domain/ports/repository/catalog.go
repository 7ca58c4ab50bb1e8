package repository

import (
	"context"

	"vpn-billing/internal/domain/model"
)

type TariffRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Tariff) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tariff, error)
}

type OptionRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Option) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Option, error)
}
