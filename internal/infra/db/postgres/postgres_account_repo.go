package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, user_id, identity, is_primary, COALESCE(provisioned_by_order, ''), created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (*model.Account, error) {
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.UserID, &a.Identity, &a.IsPrimary, &a.ProvisionedByOrder, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, user_id, identity, is_primary, provisioned_by_order, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)
ON CONFLICT (id) DO UPDATE SET identity=$3, is_primary=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.Identity, a.IsPrimary, a.ProvisionedByOrder, a.CreatedAt)
	return mapExecErr(err)
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindByProvisioningOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE provisioned_by_order=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return a, nil
}

func (r *accountRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id=$1 ORDER BY created_at ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapScanErr(err)
	}
	return out, nil
}
