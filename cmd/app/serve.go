// File: cmd/app/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vpn-billing/internal/infra/api"
	pg "vpn-billing/internal/infra/db/postgres"
	"vpn-billing/internal/infra/sched"
)

const shutdownGrace = 10 * time.Second

func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve provider webhooks and the payment API, and run background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(parent context.Context, flags *rootFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	// Workers outlive the signal context so queued side effects drain on shutdown.
	a.startWorkers(context.Background())

	go pg.ReportPoolStats(ctx, a.pool, 15*time.Second)

	cfg := a.cfg
	reconciler := sched.NewJob("payment_reconciler", cfg.Payments.ReconcileInterval, cfg.Payments.ReconcileInterval,
		sched.NewPaymentReconciler(a.reconcile, cfg.Payments.StaleAfter, 0).Run, a.log)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	if cfg.Payments.ExpireAfter > 0 {
		sweeper := sched.NewJob("expiry_sweeper", cfg.Payments.ExpireAfter/4, time.Minute,
			sched.NewExpirySweeper(a.payments, cfg.Payments.ExpireAfter, a.log).Run, a.log)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	proxies, err := api.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("http.trusted_proxies: %w", err)
	}
	deps := api.Deps{
		Payments:        a.paymentUC,
		Reconcile:       a.reconcile,
		Accounts:        a.accountUC,
		Auth:            api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Proxies:         proxies,
		ReconcileLimit:  cfg.Payments.ReconcileLimit,
		ReconcileWindow: cfg.Payments.ReconcileWindow,
		WebhookTimeout:  cfg.HTTP.WebhookTimeout,
		APITimeout:      cfg.HTTP.APITimeout,
	}
	if a.limiter != nil {
		deps.Limiter = a.limiter
	}
	srv := api.NewServer(deps, a.log)

	err = srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port), shutdownGrace)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}
