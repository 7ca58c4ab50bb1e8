// File: internal/infra/adapters/payment/registry.go
package payment

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vpn-billing/internal/config"
	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/ports/adapter"
)

var _ adapter.ProviderRegistry = (*Registry)(nil)

// Registry resolves providers by their webhook path name.
type Registry struct {
	providers map[string]adapter.PaymentProvider
}

func NewRegistry(providers ...adapter.PaymentProvider) *Registry {
	r := &Registry{providers: make(map[string]adapter.PaymentProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (adapter.PaymentProvider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnknownProvider)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type constructor func(cfg config.ProviderConfig, client *http.Client) (adapter.PaymentProvider, error)

func withoutClient[T adapter.PaymentProvider](fn func(config.ProviderConfig) (T, error)) constructor {
	return func(cfg config.ProviderConfig, _ *http.Client) (adapter.PaymentProvider, error) {
		p, err := fn(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func withClient[T adapter.PaymentProvider](fn func(config.ProviderConfig, *http.Client) (T, error)) constructor {
	return func(cfg config.ProviderConfig, c *http.Client) (adapter.PaymentProvider, error) {
		p, err := fn(cfg, c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

var constructors = map[string]constructor{
	"freekassa":   withoutClient(NewFreeKassa),
	"aaio":        withoutClient(NewAaio),
	"robokassa":   withoutClient(NewRobokassa),
	"yoomoney":    withoutClient(NewYooMoney),
	"paypalych":   withoutClient(NewPaypalych),
	"wata":        withoutClient(NewWata),
	"platega":     withClient(NewPlatega),
	"cryptobot":   withClient(NewCryptoBot),
	"nowpayments": withClient(NewNowPayments),
	"lava":        withoutClient(NewLava),
	"cryptomus":   withoutClient(NewCryptomus),
	"yookassa":    withClient(NewYooKassa),
}

// BuildRegistry constructs every enabled provider from its config record.
// All providers share one outbound client with a fixed timeout.
func BuildRegistry(cfgs map[string]config.ProviderConfig, timeout time.Duration, logger *zerolog.Logger) (*Registry, error) {
	client := &http.Client{Timeout: timeout}
	log := logger.With().Str("component", "payment_registry").Logger()

	var providers []adapter.PaymentProvider
	for name, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		build, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, domain.ErrUnknownProvider)
		}
		p, err := build(cfg, client)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	r := NewRegistry(providers...)
	log.Info().Strs("providers", r.Names()).Msg("payment providers enabled")
	return r, nil
}
