package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (
  id, telegram_id, username, balance, referrer_id, referral_percent, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  telegram_id=$2, username=$3, referrer_id=$5, referral_percent=$6;
`
	// balance changes only through AddBalance
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.TelegramID, u.Username, u.Balance, u.ReferrerID, u.ReferralPercent, u.CreatedAt)
	return mapExecErr(err)
}

const userSelect = `
SELECT id, telegram_id, username, balance, referrer_id, referral_percent, created_at
  FROM users WHERE id=$1`

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.find(ctx, tx, userSelect+";", id)
}

func (r *PostgresUserRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if !isTx(tx) {
		return nil, domain.ErrInvalidExecContext
	}
	return r.find(ctx, tx, userSelect+" FOR UPDATE;", id)
}

func (r *PostgresUserRepo) find(ctx context.Context, tx repository.Tx, q, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.Balance, &u.ReferrerID, &u.ReferralPercent, &u.CreatedAt); err != nil {
		return nil, mapScanErr(err)
	}
	return &u, nil
}

func (r *PostgresUserRepo) AddBalance(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) error {
	const q = `UPDATE users SET balance = balance + $2 WHERE id=$1 AND balance + $2 >= 0;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, delta)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		if delta.IsNegative() {
			return domain.ErrInsufficientBalance
		}
		return domain.ErrNotFound
	}
	return nil
}
