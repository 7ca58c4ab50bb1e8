package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vpn-billing/internal/usecase"
)

// RateLimiter bounds user-triggered actions. A nil limiter allows everything.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Deps struct {
	Payments  usecase.PaymentUseCase
	Reconcile usecase.ReconcileUseCase
	Accounts  usecase.AccountUseCase
	Auth      *Authenticator
	Limiter   RateLimiter
	Proxies   *TrustedProxies // nil trusts no forwarding headers

	ReconcileLimit  int
	ReconcileWindow time.Duration
	WebhookTimeout  time.Duration
	APITimeout      time.Duration
}

// Server exposes provider webhooks and the user-facing payment API.
type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	if d.WebhookTimeout <= 0 {
		d.WebhookTimeout = 10 * time.Second
	}
	if d.APITimeout <= 0 {
		d.APITimeout = 15 * time.Second
	}
	return &Server{d: d, log: &l}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.d.WebhookTimeout))
		r.Get("/webhooks/{provider}", s.handleWebhook)
		r.Post("/webhooks/{provider}", s.handleWebhook)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.d.APITimeout))
		r.Use(s.d.Auth.RequireUser)
		r.Post("/payments/reconcile", s.handleReconcileUser)
		r.Post("/payments/{orderID}/reconcile", s.handleReconcilePayment)
		r.Post("/payments/{orderID}/pay-with-balance", s.handlePayWithBalance)
		r.Get("/accounts", s.handleListAccounts)
		r.Get("/accounts/{accountID}", s.handleAccount)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains for up to grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}
