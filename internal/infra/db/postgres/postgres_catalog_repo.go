package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
)

var (
	_ repository.TariffRepository = (*tariffRepo)(nil)
	_ repository.OptionRepository = (*optionRepo)(nil)
)

type tariffRepo struct{ pool *pgxpool.Pool }

func NewTariffRepo(pool *pgxpool.Pool) *tariffRepo {
	return &tariffRepo{pool: pool}
}

func (r *tariffRepo) Save(ctx context.Context, tx repository.Tx, t *model.Tariff) error {
	const q = `
INSERT INTO tariffs (id, name, duration_days, bonus_days, traffic_limit_bytes, device_limit, groups, price, currency, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$2, duration_days=$3, bonus_days=$4, traffic_limit_bytes=$5, device_limit=$6, groups=$7, price=$8, currency=$9;`
	groups := t.Groups
	if groups == nil {
		groups = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Name, t.DurationDays, t.BonusDays, t.TrafficLimitBytes, t.DeviceLimit, groups, t.Price, t.Currency, t.CreatedAt)
	return mapExecErr(err)
}

func (r *tariffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tariff, error) {
	const q = `SELECT id, name, duration_days, bonus_days, traffic_limit_bytes, device_limit, groups, price, currency, created_at FROM tariffs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	t := &model.Tariff{}
	if err := row.Scan(&t.ID, &t.Name, &t.DurationDays, &t.BonusDays, &t.TrafficLimitBytes, &t.DeviceLimit, &t.Groups, &t.Price, &t.Currency, &t.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return t, nil
}

type optionRepo struct{ pool *pgxpool.Pool }

func NewOptionRepo(pool *pgxpool.Pool) *optionRepo {
	return &optionRepo{pool: pool}
}

func (r *optionRepo) Save(ctx context.Context, tx repository.Tx, o *model.Option) error {
	const q = `
INSERT INTO options (id, name, type, value, price, currency, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET name=$2, type=$3, value=$4, price=$5, currency=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.Name, string(o.Type), o.Value, o.Price, o.Currency, o.CreatedAt)
	return mapExecErr(err)
}

func (r *optionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Option, error) {
	const q = `SELECT id, name, type, value, price, currency, created_at FROM options WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	o := &model.Option{}
	var typ string
	if err := row.Scan(&o.ID, &o.Name, &typ, &o.Value, &o.Price, &o.Currency, &o.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	o.Type = model.OptionType(typ)
	return o, nil
}
