// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// WebhookOutcome is the HTTP answer for a provider notification.
type WebhookOutcome struct {
	Status int
	Body   string
	Result *FulfillResult
}

type PaymentUseCase interface {
	// HandleWebhook verifies a provider notification and fulfills the payment.
	// On error the outcome still carries the provider's rejection response.
	HandleWebhook(ctx context.Context, provider string, req adapter.WebhookRequest) (*WebhookOutcome, error)
	// PayWithBalance buys the user's pending order from their balance.
	PayWithBalance(ctx context.Context, userID, orderRef string) (*FulfillResult, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	providers adapter.ProviderRegistry
	engine    FulfillmentEngine
	log       *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, providers adapter.ProviderRegistry, engine FulfillmentEngine, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "payment_uc").Logger()
	return &paymentUC{payments: payments, providers: providers, engine: engine, log: &l}
}

func (u *paymentUC) HandleWebhook(ctx context.Context, name string, req adapter.WebhookRequest) (*WebhookOutcome, error) {
	ctx = logging.WithProvider(ctx, name)
	log := logging.With(ctx, u.log)

	provider, err := u.providers.Get(name)
	if err != nil {
		return &WebhookOutcome{Status: http.StatusNotFound}, err
	}
	reject := &WebhookOutcome{Status: provider.RejectStatus()}

	vr, err := provider.VerifyWebhook(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("remote_ip", req.RemoteIP).Msg("webhook rejected")
		return reject, err
	}
	if !vr.Verified {
		log.Info().Str("raw_status", vr.RawStatus).Str("order_id", vr.OrderID).Msg("webhook status not final")
		return reject, fmt.Errorf("%s status %q: %w", provider.Name(), vr.RawStatus, domain.ErrUnverifiedStatus)
	}

	p, err := u.lookup(ctx, vr)
	if err != nil {
		return reject, err
	}
	ctx = logging.WithOrderID(ctx, p.OrderID)
	if p.Provider != "" && !strings.EqualFold(p.Provider, provider.Name()) {
		return reject, fmt.Errorf("payment %s belongs to %s: %w", p.OrderID, p.Provider, domain.ErrMalformedPayload)
	}
	if err := checkAmount(p, vr); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("webhook amount below payment amount")
		return reject, err
	}

	res, err := u.engine.Fulfill(ctx, p.OrderID, PaidSignal{Source: SourceWebhook, Provider: provider.Name(), RawStatus: vr.RawStatus})
	if err != nil {
		return reject, err
	}
	status, body := provider.Ack(p.OrderID)
	return &WebhookOutcome{Status: status, Body: body, Result: res}, nil
}

// lookup resolves the notification to a payment, by order id first and by
// the provider's own id when the order id is unknown.
func (u *paymentUC) lookup(ctx context.Context, vr adapter.WebhookResult) (*model.Payment, error) {
	ref := vr.OrderID
	if ref == "" {
		ref = vr.PaymentSystemID
	}
	p, err := u.payments.FindByReference(ctx, repository.NoTX, ref)
	if errors.Is(err, domain.ErrNotFound) && vr.OrderID != "" && vr.PaymentSystemID != "" {
		p, err = u.payments.FindByReference(ctx, repository.NoTX, vr.PaymentSystemID)
	}
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", ref, err)
	}
	return p, nil
}

// checkAmount rejects a confirmation for less than the payment amount when
// the provider reports the amount in the payment's currency.
func checkAmount(p *model.Payment, vr adapter.WebhookResult) error {
	if vr.Amount.IsZero() {
		return nil
	}
	if vr.Currency != "" && !strings.EqualFold(vr.Currency, p.Currency) {
		return nil
	}
	if vr.Amount.LessThan(p.Amount) {
		return fmt.Errorf("reported %s %s below %s: %w", vr.Amount, p.Currency, p.Amount, domain.ErrUnverifiedStatus)
	}
	return nil
}

func (u *paymentUC) PayWithBalance(ctx context.Context, userID, orderRef string) (*FulfillResult, error) {
	ctx = logging.WithUserID(ctx, userID)
	p, err := u.payments.FindByReference(ctx, repository.NoTX, orderRef)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("payment %s: %w", orderRef, domain.ErrNotFound)
	}
	return u.engine.Fulfill(ctx, p.OrderID, PaidSignal{Source: SourceBalance})
}
