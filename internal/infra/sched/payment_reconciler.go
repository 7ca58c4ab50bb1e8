package sched

import (
	"context"
	"time"

	"vpn-billing/internal/usecase"
)

const defaultReconcileBatch = 200

// PaymentReconciler polls providers for PENDING payments whose webhook never
// arrived. It covers lost callbacks and crashes between the provider's
// confirmation and our commit.
type PaymentReconciler struct {
	uc         usecase.ReconcileUseCase
	staleAfter time.Duration
	batch      int
}

func NewPaymentReconciler(uc usecase.ReconcileUseCase, staleAfter time.Duration, batch int) *PaymentReconciler {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &PaymentReconciler{uc: uc, staleAfter: staleAfter, batch: batch}
}

func (r *PaymentReconciler) Run(ctx context.Context) error {
	_, err := r.uc.ReconcileStale(ctx, r.staleAfter, r.batch)
	return err
}
