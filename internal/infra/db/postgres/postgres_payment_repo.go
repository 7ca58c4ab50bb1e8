package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, order_id, user_id, tariff_id, description, amount, currency, status, payment_system_id, provider, promo_code_id, account_id, create_new_config, message_id, created_at, updated_at, paid_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.TariffID, &p.Description, &p.Amount, &p.Currency, &status, &p.PaymentSystemID, &p.Provider, &p.PromoCodeID, &p.AccountID, &p.CreateNewConfig, &p.MessageID, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, order_id, user_id, tariff_id, description, amount, currency, status, payment_system_id, provider, promo_code_id, account_id, create_new_config, message_id, created_at, updated_at, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (id) DO UPDATE SET
  description=$5, amount=$6, currency=$7, payment_system_id=$9, promo_code_id=$11, account_id=$12, create_new_config=$13, message_id=$14, updated_at=$16;`

	// status and paid_at are owned by MarkPaid.
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.OrderID, p.UserID, p.TariffID, p.Description, p.Amount, p.Currency, string(p.Status), p.PaymentSystemID, p.Provider, p.PromoCodeID, p.AccountID, p.CreateNewConfig, p.MessageID, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	return mapExecErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if isTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return p, nil
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	if ref == "" {
		return nil, domain.ErrInvalidArgument
	}
	q := `SELECT ` + paymentColumns + ` FROM payments
 WHERE order_id=$1 OR (payment_system_id <> '' AND payment_system_id=$1)
 ORDER BY (order_id=$1) DESC
 LIMIT 1`
	if isTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", ref)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapScanErr(err)
	}
	return p, nil
}

func (r *paymentRepo) ListPendingByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 AND status='PENDING' ORDER BY created_at ASC;`
	return r.list(ctx, tx, q, userID)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='PENDING' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapScanErr(err)
	}
	return out, nil
}

func (r *paymentRepo) BindAccount(ctx context.Context, tx repository.Tx, id, accountID string) error {
	const q = `UPDATE payments SET account_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, accountID)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPaid atomically flips a PENDING or EXPIRED payment to PAID.
func (r *paymentRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	const q = `
    UPDATE payments
       SET status = 'PAID',
           paid_at = $2,
           updated_at = NOW()
     WHERE id = $1
       AND status IN ('PENDING','EXPIRED')`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, paidAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	const q = `UPDATE payments SET status='EXPIRED', updated_at=NOW() WHERE status='PENDING' AND created_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan)
	if err != nil {
		return 0, mapExecErr(err)
	}
	return cmd.RowsAffected(), nil
}
