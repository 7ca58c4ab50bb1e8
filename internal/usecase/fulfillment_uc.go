// File: internal/usecase/fulfillment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/logging"
	"vpn-billing/internal/infra/metrics"
)

// Compile-time check
var _ FulfillmentEngine = (*fulfillmentEngine)(nil)

// PaidSource is what vouched for the payment.
type PaidSource string

const (
	SourceWebhook PaidSource = "webhook"
	SourcePoll    PaidSource = "poll"
	SourceBalance PaidSource = "balance"
)

type PaidSignal struct {
	Source    PaidSource
	Provider  string
	RawStatus string
}

// FulfillResult reports what a Fulfill call did. Applied is false when the
// payment had already been fulfilled by an earlier signal.
type FulfillResult struct {
	Applied     bool
	Kind        model.PurchaseKind
	PaymentID   string
	OrderID     string
	UserID      string
	AccountID   string
	Provisioned bool
	ExpireAt    *time.Time
	Credited    decimal.Decimal // top-up amount in the reference currency
	Currency    string
}

// FulfillmentEngine applies a confirmed payment exactly once.
type FulfillmentEngine interface {
	Fulfill(ctx context.Context, orderRef string, sig PaidSignal) (*FulfillResult, error)
}

type FulfillmentDeps struct {
	Payments repository.PaymentRepository
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Tariffs  repository.TariffRepository
	Options  repository.OptionRepository
	Promos   repository.PromoCodeRepository
	TM       repository.TransactionManager

	Panel    adapter.EntitlementClient // uncached: fulfillment always reads fresh snapshots
	Cache    adapter.AccountCache
	Locker   adapter.AccountLocker
	Notifier adapter.Notifier
	Tasks    adapter.TaskQueue

	Currency *CurrencyNormalizer
	Referral model.ReferralSettings

	SideEffectTimeout time.Duration
	Now               func() time.Time
}

type fulfillmentEngine struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	accounts repository.AccountRepository
	tariffs  repository.TariffRepository
	options  repository.OptionRepository
	promos   repository.PromoCodeRepository
	tm       repository.TransactionManager

	panel    adapter.EntitlementClient
	cache    adapter.AccountCache
	locker   adapter.AccountLocker
	notifier adapter.Notifier
	tasks    adapter.TaskQueue

	currency *CurrencyNormalizer
	referral model.ReferralSettings
	timeout  time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

func NewFulfillmentEngine(d FulfillmentDeps, logger *zerolog.Logger) *fulfillmentEngine {
	l := logger.With().Str("component", "fulfillment").Logger()
	e := &fulfillmentEngine{
		payments: d.Payments,
		users:    d.Users,
		accounts: d.Accounts,
		tariffs:  d.Tariffs,
		options:  d.Options,
		promos:   d.Promos,
		tm:       d.TM,
		panel:    d.Panel,
		cache:    d.Cache,
		locker:   d.Locker,
		notifier: d.Notifier,
		tasks:    d.Tasks,
		currency: d.Currency,
		referral: d.Referral,
		timeout:  d.SideEffectTimeout,
		now:      d.Now,
		log:      &l,
	}
	if e.timeout <= 0 {
		e.timeout = 10 * time.Second
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// errAlreadyFulfilled rolls back a unit of work that lost the PAID transition.
var errAlreadyFulfilled = errors.New("payment already fulfilled")

// fulfillState carries what the post-commit steps need.
type fulfillState struct {
	payment    *model.Payment
	payer      *model.User
	amountRef  decimal.Decimal
	refErr     error
	referrer   *model.User
	commission decimal.Decimal
}

// Fulfill runs the whole purchase inside one transaction holding the payment
// row lock. The PAID transition is the last write; referral credit and
// notifications happen after commit and never fail the call.
func (e *fulfillmentEngine) Fulfill(ctx context.Context, orderRef string, sig PaidSignal) (*FulfillResult, error) {
	if orderRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithOrderID(ctx, orderRef)
	if sig.Provider != "" {
		ctx = logging.WithProvider(ctx, sig.Provider)
	}
	log := logging.With(ctx, e.log)
	defer logging.TraceDuration(log, "Fulfill")()

	res := &FulfillResult{OrderID: orderRef}
	var st fulfillState
	err := e.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		res.Applied = false
		return e.apply(ctx, tx, orderRef, sig, res, &st, log)
	})
	if errors.Is(err, errAlreadyFulfilled) {
		res.Applied, err = false, nil
	}
	if err != nil {
		metrics.IncFulfillment(string(res.Kind), string(sig.Source), "error")
		log.Error().Err(err).Str("source", string(sig.Source)).Msg("fulfillment aborted")
		return nil, err
	}
	if !res.Applied {
		metrics.IncFulfillment(string(res.Kind), string(sig.Source), "duplicate")
		log.Info().Str("source", string(sig.Source)).Msg("payment already fulfilled")
		return res, nil
	}

	p := st.payment
	metrics.IncFulfillment(string(res.Kind), string(sig.Source), "applied")
	metrics.AddPaymentRevenue(p.Currency, p.Amount)
	if sig.Source == SourceBalance {
		metrics.AddBalanceChange("debit", st.amountRef)
	}
	if res.Kind == model.PurchaseTopUp {
		metrics.AddBalanceChange("topup", res.Credited)
	}
	log.Info().
		Str("kind", string(res.Kind)).
		Str("source", string(sig.Source)).
		Str("raw_status", sig.RawStatus).
		Str("account_id", res.AccountID).
		Msg("payment fulfilled")

	e.creditReferrer(ctx, log, sig, &st)
	e.dispatchSideEffects(log, res, &st)
	return res, nil
}

func (e *fulfillmentEngine) apply(ctx context.Context, tx repository.Tx, orderRef string, sig PaidSignal, res *FulfillResult, st *fulfillState, log *zerolog.Logger) error {
	p, err := e.payments.FindByReference(ctx, tx, orderRef)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", orderRef, err)
	}
	res.PaymentID, res.OrderID, res.UserID = p.ID, p.OrderID, p.UserID
	res.Kind, res.Currency = p.Kind(), p.Currency
	if p.IsPaid() {
		return nil
	}
	if !p.Payable() {
		return fmt.Errorf("payment %s in status %s: %w", p.ID, p.Status, domain.ErrInvalidArgument)
	}
	st.payment = p

	balance := sig.Source == SourceBalance
	if balance && res.Kind == model.PurchaseTopUp {
		return fmt.Errorf("top-up cannot be paid from balance: %w", domain.ErrInvalidArgument)
	}

	// Every read below runs on the transaction's connection. The payer row is
	// locked, after the payment row, only when it is about to be debited.
	var payer *model.User
	if balance {
		payer, err = e.users.LockByID(ctx, tx, p.UserID)
	} else {
		payer, err = e.users.FindByID(ctx, tx, p.UserID)
	}
	if err != nil {
		return fmt.Errorf("load payer %s: %w", p.UserID, err)
	}
	st.payer = payer
	st.amountRef, st.refErr = e.currency.ToReference(p.Amount, p.Currency)

	if balance {
		if st.refErr != nil {
			return st.refErr
		}
		if payer.Balance.LessThan(st.amountRef) {
			return fmt.Errorf("balance %s below %s: %w", payer.Balance, st.amountRef, domain.ErrInsufficientBalance)
		}
		if err := e.users.AddBalance(ctx, tx, payer.ID, st.amountRef.Neg()); err != nil {
			return err
		}
	}

	switch res.Kind {
	case model.PurchaseSubscription:
		err = e.applySubscription(ctx, tx, p, payer, res, log)
	case model.PurchaseOption:
		err = e.applyOption(ctx, tx, p, res)
	default:
		if st.refErr != nil {
			return st.refErr
		}
		if err = e.users.AddBalance(ctx, tx, payer.ID, st.amountRef); err == nil {
			res.Credited, res.Currency = st.amountRef, e.currency.Reference()
		}
	}
	if err != nil {
		return err
	}

	// the decrement commits or rolls back with MarkPaid, so a retried order consumes the code once
	if p.PromoCodeID != nil && *p.PromoCodeID != "" {
		if err := e.promos.Decrement(ctx, tx, *p.PromoCodeID); err != nil {
			log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrPromoDecrementFailed, err)).Str("promo_code_id", *p.PromoCodeID).Msg("promo code not decremented")
		}
	}

	ok, err := e.payments.MarkPaid(ctx, tx, p.ID, e.now())
	if err != nil {
		return err
	}
	if !ok {
		return errAlreadyFulfilled
	}
	res.Applied = true
	return nil
}

func (e *fulfillmentEngine) applySubscription(ctx context.Context, tx repository.Tx, p *model.Payment, payer *model.User, res *FulfillResult, log *zerolog.Logger) error {
	tariff, err := e.tariffs.FindByID(ctx, tx, *p.TariffID)
	if err != nil {
		return fmt.Errorf("load tariff %s: %w", *p.TariffID, err)
	}
	if err := tariff.Validate(); err != nil {
		return fmt.Errorf("tariff %s: %v: %w", tariff.ID, err, domain.ErrInvalidArgument)
	}

	acc, fresh, err := e.resolveAccount(ctx, tx, p, payer, log)
	if err != nil {
		return err
	}
	unlock, err := e.locker.Lock(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("lock account %s: %w", acc.ID, err)
	}
	defer unlock()

	var cur *model.Entitlement
	if !fresh {
		if cur, err = e.panel.GetAccount(ctx, acc.ID); err != nil {
			return fmt.Errorf("%w: read %s: %v", domain.ErrEntitlementPushFailed, acc.ID, err)
		}
	}
	patch := SubscriptionPatch(tariff, cur, e.now())
	if err := e.panel.PatchAccount(ctx, acc.ID, patch); err != nil {
		return fmt.Errorf("%w: patch %s: %v", domain.ErrEntitlementPushFailed, acc.ID, err)
	}
	res.AccountID, res.Provisioned, res.ExpireAt = acc.ID, fresh, expiryOf(patch)
	return nil
}

func (e *fulfillmentEngine) applyOption(ctx context.Context, tx repository.Tx, p *model.Payment, res *FulfillResult) error {
	optID, _ := p.OptionID()
	opt, err := e.options.FindByID(ctx, tx, optID)
	if err != nil {
		return fmt.Errorf("load option %s: %w", optID, err)
	}
	accounts, err := e.accounts.ListByUser(ctx, tx, p.UserID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("option %s: user %s has no account: %w", optID, p.UserID, domain.ErrNotFound)
	}
	acc := model.SelectTarget(accounts, p.AccountID)
	if acc == nil {
		return fmt.Errorf("account %s is not owned by user %s: %w", *p.AccountID, p.UserID, domain.ErrInvalidArgument)
	}

	unlock, err := e.locker.Lock(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("lock account %s: %w", acc.ID, err)
	}
	defer unlock()

	cur, err := e.panel.GetAccount(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrEntitlementPushFailed, acc.ID, err)
	}
	patch, err := OptionPatch(opt, cur)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}
	if !patch.IsEmpty() {
		if err := e.panel.PatchAccount(ctx, acc.ID, patch); err != nil {
			return fmt.Errorf("%w: patch %s: %v", domain.ErrEntitlementPushFailed, acc.ID, err)
		}
	}
	res.AccountID = acc.ID
	return nil
}

// resolveAccount returns the subscription target and whether it was created
// by this call. An account already provisioned for the order is reused so a
// retried payment never provisions twice.
func (e *fulfillmentEngine) resolveAccount(ctx context.Context, tx repository.Tx, p *model.Payment, payer *model.User, log *zerolog.Logger) (*model.Account, bool, error) {
	acc, err := e.accounts.FindByProvisioningOrder(ctx, tx, p.OrderID)
	switch {
	case err == nil:
		if p.AccountID == nil || *p.AccountID != acc.ID {
			if err := e.payments.BindAccount(ctx, tx, p.ID, acc.ID); err != nil {
				return nil, false, err
			}
		}
		return acc, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	accounts, err := e.accounts.ListByUser(ctx, tx, payer.ID)
	if err != nil {
		return nil, false, err
	}
	if !p.CreateNewConfig && len(accounts) > 0 {
		acc := model.SelectTarget(accounts, p.AccountID)
		if acc == nil {
			return nil, false, fmt.Errorf("account %s is not owned by user %s: %w", *p.AccountID, payer.ID, domain.ErrInvalidArgument)
		}
		return acc, false, nil
	}

	identity := NextIdentity(payer.TelegramID, accounts)
	id, err := e.panel.CreateAccount(ctx, identity)
	if err != nil {
		return nil, false, fmt.Errorf("%w: create %s: %v", domain.ErrAccountProvisioningFailed, identity, err)
	}
	acc = &model.Account{
		ID:                 id,
		UserID:             payer.ID,
		Identity:           identity,
		IsPrimary:          len(accounts) == 0,
		ProvisionedByOrder: p.OrderID,
		CreatedAt:          e.now(),
	}
	// Recorded outside the transaction so a rolled back attempt still finds it.
	// This is the one statement that takes a second pooled connection.
	if err := e.accounts.Save(ctx, repository.NoTX, acc); err != nil {
		log.Error().Err(err).Str("account_id", id).Str("identity", identity).Msg("panel account created but not recorded")
		return nil, false, fmt.Errorf("%w: record %s: %v", domain.ErrAccountProvisioningFailed, id, err)
	}
	if err := e.payments.BindAccount(ctx, tx, p.ID, id); err != nil {
		return nil, false, err
	}
	log.Info().Str("account_id", id).Str("identity", identity).Msg("account provisioned")
	return acc, true, nil
}

// creditReferrer pays the PERCENT commission. Balance-funded purchases are
// skipped: the money was commissioned when it was topped up.
func (e *fulfillmentEngine) creditReferrer(ctx context.Context, log *zerolog.Logger, sig PaidSignal, st *fulfillState) {
	payer := st.payer
	if sig.Source == SourceBalance || e.referral.Mode != model.ReferralPercent {
		return
	}
	if payer.ReferrerID == nil || *payer.ReferrerID == "" || *payer.ReferrerID == payer.ID {
		return
	}
	if st.refErr != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrReferralCreditFailed, st.refErr)).Msg("referral commission skipped")
		return
	}
	referrer, err := e.users.FindByID(ctx, repository.NoTX, *payer.ReferrerID)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrReferralCreditFailed, err)).Str("referrer_id", *payer.ReferrerID).Msg("referrer not loaded")
		return
	}
	commission := ComputeCommission(st.amountRef, e.referral.PercentFor(referrer))
	if !commission.IsPositive() {
		return
	}
	if err := e.users.AddBalance(ctx, repository.NoTX, referrer.ID, commission); err != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", domain.ErrReferralCreditFailed, err)).Str("referrer_id", referrer.ID).Msg("referral commission not credited")
		return
	}
	metrics.AddBalanceChange("referral", commission)
	st.referrer, st.commission = referrer, commission
	log.Info().Str("referrer_id", referrer.ID).Str("commission", commission.String()).Msg("referral commission credited")
}

func (e *fulfillmentEngine) dispatchSideEffects(log *zerolog.Logger, res *FulfillResult, st *fulfillState) {
	if res.AccountID != "" && e.cache != nil {
		accountID := res.AccountID
		e.submit(log, "cache_invalidate", func(ctx context.Context) error {
			return e.cache.Invalidate(ctx, accountID)
		})
	}

	payerTG, notice := st.payer.TelegramID, payerNotice(res)
	e.submit(log, "notify_payer", func(ctx context.Context) error {
		err := e.notifier.Notify(ctx, payerTG, notice)
		metrics.IncPaymentDM("payer", dmStatus(err))
		return err
	})

	if st.referrer != nil {
		refTG, text := st.referrer.TelegramID, referrerNotice(st.commission, e.currency.Reference())
		e.submit(log, "notify_referrer", func(ctx context.Context) error {
			err := e.notifier.Notify(ctx, refTG, text)
			metrics.IncPaymentDM("referrer", dmStatus(err))
			return err
		})
	}

	if msgID := st.payment.MessageID; msgID != 0 {
		e.submit(log, "delete_message", func(ctx context.Context) error {
			err := e.notifier.DeleteMessage(ctx, payerTG, msgID)
			metrics.IncPaymentDM("cleanup", dmStatus(err))
			return err
		})
	}
}

func (e *fulfillmentEngine) submit(log *zerolog.Logger, kind string, fn func(ctx context.Context) error) {
	timeout := e.timeout
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.IncSideEffect(kind, "error")
			log.Warn().Err(err).Str("side_effect", kind).Msg("side effect failed")
			return err
		}
		metrics.IncSideEffect(kind, "ok")
		return nil
	}
	if err := e.tasks.Submit(task); err != nil {
		metrics.IncSideEffect(kind, "dropped")
		log.Warn().Err(err).Str("side_effect", kind).Msg("side effect dropped")
	}
}

func dmStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "sent"
}
