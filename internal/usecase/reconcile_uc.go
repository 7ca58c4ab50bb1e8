// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/logging"
	"vpn-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileResult counts what a reconciliation pass saw. Payments whose
// provider cannot be polled are Unsupported, not errors.
type ReconcileResult struct {
	Checked     int `json:"checked"`
	Reconciled  int `json:"reconciled"`
	Unsupported int `json:"unsupported"`
	Failed      int `json:"failed"`
}

func (r *ReconcileResult) add(o ReconcileResult) {
	r.Checked += o.Checked
	r.Reconciled += o.Reconciled
	r.Unsupported += o.Unsupported
	r.Failed += o.Failed
}

// ReconcileUseCase polls providers for PENDING payments whose webhook never arrived.
type ReconcileUseCase interface {
	ReconcileUser(ctx context.Context, userID string) (ReconcileResult, error)
	ReconcilePayment(ctx context.Context, userID, orderRef string) (ReconcileResult, error)
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileResult, error)
}

type reconcileUC struct {
	payments  repository.PaymentRepository
	providers adapter.ProviderRegistry
	engine    FulfillmentEngine
	now       func() time.Time
	log       *zerolog.Logger
}

func NewReconcileUseCase(payments repository.PaymentRepository, providers adapter.ProviderRegistry, engine FulfillmentEngine, logger *zerolog.Logger) *reconcileUC {
	l := logger.With().Str("component", "reconcile_uc").Logger()
	return &reconcileUC{payments: payments, providers: providers, engine: engine, now: time.Now, log: &l}
}

func (u *reconcileUC) ReconcileUser(ctx context.Context, userID string) (ReconcileResult, error) {
	ctx = logging.WithUserID(ctx, userID)
	defer logging.TraceDuration(logging.With(ctx, u.log), "ReconcileUC.ReconcileUser")()

	pending, err := u.payments.ListPendingByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return ReconcileResult{}, err
	}
	return u.reconcile(ctx, pending), nil
}

func (u *reconcileUC) ReconcilePayment(ctx context.Context, userID, orderRef string) (ReconcileResult, error) {
	ctx = logging.WithUserID(ctx, userID)
	p, err := u.payments.FindByReference(ctx, repository.NoTX, orderRef)
	if err != nil {
		return ReconcileResult{}, err
	}
	if p.UserID != userID {
		return ReconcileResult{}, fmt.Errorf("payment %s: %w", orderRef, domain.ErrNotFound)
	}
	if p.Status != model.PaymentStatusPending {
		return ReconcileResult{}, nil
	}
	return u.reconcile(ctx, []*model.Payment{p}), nil
}

func (u *reconcileUC) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileResult, error) {
	pending, err := u.payments.ListPendingOlderThan(ctx, repository.NoTX, u.now().Add(-olderThan), limit)
	if err != nil {
		return ReconcileResult{}, err
	}
	res := u.reconcile(ctx, pending)
	if res.Checked > 0 || res.Failed > 0 {
		u.log.Info().
			Int("checked", res.Checked).
			Int("reconciled", res.Reconciled).
			Int("unsupported", res.Unsupported).
			Int("failed", res.Failed).
			Msg("stale payments reconciled")
	}
	return res, nil
}

func (u *reconcileUC) reconcile(ctx context.Context, pending []*model.Payment) ReconcileResult {
	var total ReconcileResult
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		total.add(u.reconcileOne(ctx, p))
	}
	return total
}

func (u *reconcileUC) reconcileOne(ctx context.Context, p *model.Payment) ReconcileResult {
	ctx = logging.WithProvider(logging.WithOrderID(ctx, p.OrderID), p.Provider)
	log := logging.With(ctx, u.log)

	if p.PaymentSystemID == "" {
		metrics.IncReconcile(p.Provider, "unsupported")
		return ReconcileResult{Unsupported: 1}
	}
	provider, err := u.providers.Get(p.Provider)
	if err != nil {
		metrics.IncReconcile(p.Provider, "unsupported")
		log.Warn().Err(err).Msg("payment provider not configured")
		return ReconcileResult{Unsupported: 1}
	}

	poll, err := provider.PollStatus(ctx, p.PaymentSystemID)
	switch {
	case errors.Is(err, domain.ErrPollUnsupported):
		metrics.IncReconcile(p.Provider, "unsupported")
		return ReconcileResult{Unsupported: 1}
	case err != nil:
		metrics.IncReconcile(p.Provider, "error")
		log.Warn().Err(err).Msg("status poll failed")
		return ReconcileResult{Failed: 1}
	}
	if !poll.Confirmed {
		metrics.IncReconcile(p.Provider, "pending")
		return ReconcileResult{Checked: 1}
	}

	res, err := u.engine.Fulfill(ctx, p.OrderID, PaidSignal{Source: SourcePoll, Provider: p.Provider, RawStatus: poll.RawStatus})
	if err != nil {
		metrics.IncReconcile(p.Provider, "error")
		return ReconcileResult{Checked: 1, Failed: 1}
	}
	metrics.IncReconcile(p.Provider, "confirmed")
	out := ReconcileResult{Checked: 1}
	if res.Applied {
		out.Reconciled = 1
	}
	return out
}
