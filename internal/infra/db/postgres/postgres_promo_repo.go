package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*promoRepo)(nil)

type promoRepo struct{ pool *pgxpool.Pool }

func NewPromoRepo(pool *pgxpool.Pool) *promoRepo {
	return &promoRepo{pool: pool}
}

func (r *promoRepo) Save(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (id, code, uses_left, created_at) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET code=$2, uses_left=$3;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Code, p.UsesLeft, p.CreatedAt)
	return mapExecErr(err)
}

func (r *promoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PromoCode, error) {
	const q = `SELECT id, code, uses_left, created_at FROM promo_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.PromoCode{}
	if err := row.Scan(&p.ID, &p.Code, &p.UsesLeft, &p.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return p, nil
}

// Decrement runs under a savepoint when tx is a transaction, so a failed
// statement does not abort the caller's unit of work.
func (r *promoRepo) Decrement(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE promo_codes SET uses_left = uses_left - 1 WHERE id=$1 AND uses_left > 0;`
	outer, ok := tx.(pgx.Tx)
	if !ok {
		return decrement(ctx, r.pool, tx, q, id)
	}
	sp, err := outer.Begin(ctx)
	if err != nil {
		return mapExecErr(err)
	}
	if err := decrement(ctx, r.pool, sp, q, id); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return mapExecErr(sp.Commit(ctx))
}

func decrement(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q, id string) error {
	cmd, err := execSQL(ctx, pool, tx, q, id)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
