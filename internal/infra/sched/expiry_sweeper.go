package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/metrics"
)

// ExpirySweeper moves PENDING payments older than the TTL to EXPIRED.
// A verified webhook may still pay an EXPIRED payment.
type ExpirySweeper struct {
	payments repository.PaymentRepository
	after    time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

func NewExpirySweeper(payments repository.PaymentRepository, after time.Duration, logger *zerolog.Logger) *ExpirySweeper {
	l := logger.With().Str("component", "expiry_sweeper").Logger()
	return &ExpirySweeper{payments: payments, after: after, now: time.Now, log: &l}
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	if s.after <= 0 {
		return nil
	}
	n, err := s.payments.ExpirePendingOlderThan(ctx, repository.NoTX, s.now().Add(-s.after))
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.AddExpiredPayments(n)
		s.log.Info().Int64("expired", n).Msg("stale pending payments expired")
	}
	return nil
}
