package repository

import (
	"context"
	"time"

	"vpn-billing/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindByReference matches order_id first, then payment_system_id.
	// The row is locked when tx is a transaction handle.
	FindByReference(ctx context.Context, tx Tx, ref string) (*model.Payment, error)
	ListPendingByUser(ctx context.Context, tx Tx, userID string) ([]*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	BindAccount(ctx context.Context, tx Tx, id, accountID string) error
	// MarkPaid is the single PAID writer. It reports false when the row was
	// no longer PENDING or EXPIRED.
	MarkPaid(ctx context.Context, tx Tx, id string, paidAt time.Time) (bool, error)
	// ExpirePendingOlderThan moves stale PENDING rows to EXPIRED and returns the count.
	ExpirePendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time) (int64, error)
}
