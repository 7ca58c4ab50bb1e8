// File: cmd/app/wire.go
package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"vpn-billing/internal/config"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/adapters/panel"
	payAdapters "vpn-billing/internal/infra/adapters/payment"
	tele "vpn-billing/internal/infra/adapters/telegram"
	pg "vpn-billing/internal/infra/db/postgres"
	"vpn-billing/internal/infra/logging"
	"vpn-billing/internal/infra/memlock"
	"vpn-billing/internal/infra/metrics"
	red "vpn-billing/internal/infra/redis"
	"vpn-billing/internal/infra/worker"
	"vpn-billing/internal/usecase"
)

// app holds every wired component. Commands build it once and call close when done.
type app struct {
	cfg *config.Config
	log *zerolog.Logger

	pool  *pgxpool.Pool
	redis *red.Client // nil when redis is disabled

	payments repository.PaymentRepository
	users    repository.UserRepository
	accounts repository.AccountRepository
	tariffs  repository.TariffRepository
	options  repository.OptionRepository
	promos   repository.PromoCodeRepository

	workers   *worker.Pool
	engine    usecase.FulfillmentEngine
	paymentUC usecase.PaymentUseCase
	reconcile usecase.ReconcileUseCase
	accountUC usecase.AccountUseCase
	limiter   *red.RateLimiter // nil when redis is disabled
}

func loadApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := config.LoadConfig(flags.configPath, flags.dev)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().
		Str("version", Version).
		Str("database", logging.Redact(cfg.Database.URL, cfg.Runtime.Dev)).
		Bool("redis", cfg.Redis.URL != "").
		Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo(Version, Commit)

	a := &app{cfg: cfg, log: logger}

	// ---- Postgres ----
	a.pool, err = pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	// ---- Redis (optional) ----
	if cfg.Redis.URL != "" {
		a.redis, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			a.pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.limiter = red.NewRateLimiter(a.redis)
	}

	// ---- Repositories ----
	a.payments = pg.NewPaymentRepo(a.pool)
	a.users = pg.NewPostgresUserRepo(a.pool)
	a.accounts = pg.NewAccountRepo(a.pool)
	a.promos = pg.NewPromoRepo(a.pool)
	a.tariffs = pg.NewTariffRepo(a.pool)
	a.options = pg.NewOptionRepo(a.pool)
	if a.redis != nil {
		a.tariffs = pg.NewTariffRepoCacheDecorator(a.tariffs, a.redis, cfg.Redis.TTL, logger)
		a.options = pg.NewOptionRepoCacheDecorator(a.options, a.redis, cfg.Redis.TTL, logger)
	}
	tm := pg.NewTxManager(a.pool)

	// ---- Adapters ----
	registry, err := payAdapters.BuildRegistry(cfg.Providers, cfg.Payments.OutboundTimeout, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("payment providers: %w", err)
	}

	panelClient, err := panel.NewClient(cfg.Panel)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("panel: %w", err)
	}

	var notifier adapter.Notifier
	if cfg.Bot.Token != "" {
		notifier, err = tele.NewBotNotifier(cfg.Bot.Token, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
	} else {
		logger.Warn().Msg("bot.token not set; notifications are logged only")
		notifier = tele.NewNoopNotifier(logger)
	}

	var (
		locker adapter.AccountLocker
		cache  adapter.AccountCache = panel.NoopCache{}
	)
	if a.redis != nil {
		locker = red.NewAccountLocker(red.NewLocker(a.redis), cfg.Payments.LockTTL, logger)
		cache = red.NewAccountCache(a.redis, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis disabled; account locks are process-local")
		locker = memlock.NewKeyed()
	}

	// ---- Use cases ----
	a.workers = worker.NewPool(cfg.Payments.Workers, logger)
	a.engine = usecase.NewFulfillmentEngine(usecase.FulfillmentDeps{
		Payments:          a.payments,
		Users:             a.users,
		Accounts:          a.accounts,
		Tariffs:           a.tariffs,
		Options:           a.options,
		Promos:            a.promos,
		TM:                tm,
		Panel:             panelClient,
		Cache:             cache,
		Locker:            locker,
		Notifier:          notifier,
		Tasks:             a.workers,
		Currency:          usecase.NewCurrencyNormalizer(cfg.Currency.Reference, cfg.Currency.Rates),
		Referral:          model.ReferralSettings{Mode: model.ParseReferralMode(cfg.Referral.Mode), DefaultPercent: cfg.Referral.DefaultPercent},
		SideEffectTimeout: cfg.Payments.OutboundTimeout,
	}, logger)
	a.paymentUC = usecase.NewPaymentUseCase(a.payments, registry, a.engine, logger)
	a.reconcile = usecase.NewReconcileUseCase(a.payments, registry, a.engine, logger)
	a.accountUC = usecase.NewAccountUseCase(a.accounts, panel.NewCachedClient(panelClient, cache, logger), logger)

	return a, nil
}

// startWorkers runs the side-effect pool until ctx ends. Commands that fulfill
// payments must call it, otherwise notifications queue up and are dropped.
func (a *app) startWorkers(ctx context.Context) {
	a.workers.Start(ctx)
}

func (a *app) close() {
	if a.workers != nil {
		a.workers.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
