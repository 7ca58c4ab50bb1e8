// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port" validate:"gte=1,lte=65535"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	APITimeout     time.Duration `yaml:"api_timeout"`
	// TrustedProxies may set X-Forwarded-For/X-Real-IP. Empty: the TCP peer is the client.
	TrustedProxies []string `yaml:"trusted_proxies" validate:"dive,cidr|ip"`
}

type LogConfig struct {
	Level    string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format   string `yaml:"format" validate:"oneof=json console"`
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" validate:"required"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables redis: in-process locks, no cache, no rate limit
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type BotConfig struct {
	Token string `yaml:"token"` // empty uses the no-op notifier
}

type PanelConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Token   string        `yaml:"token" validate:"required"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type PaymentsConfig struct {
	ExpireAfter       time.Duration `yaml:"expire_after"` // 0 disables the expiry sweep
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	OutboundTimeout   time.Duration `yaml:"outbound_timeout"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
	Workers           int           `yaml:"workers"`
	ReconcileLimit    int           `yaml:"reconcile_limit"`        // per user per window
	ReconcileWindow   time.Duration `yaml:"reconcile_limit_window"` // rate-limit window
}

type ReferralConfig struct {
	Mode           string          `yaml:"mode" validate:"oneof=PERCENT DAYS"`
	DefaultPercent decimal.Decimal `yaml:"default_percent"`
}

// CurrencyConfig maps a currency code to units per one reference unit.
type CurrencyConfig struct {
	Reference string                     `yaml:"reference" validate:"required,len=3"`
	Rates     map[string]decimal.Decimal `yaml:"rates"`
}

// ProviderConfig is the per-processor record. Which fields matter depends on the provider.
type ProviderConfig struct {
	Enabled      bool     `yaml:"enabled"`
	MerchantID   string   `yaml:"merchant_id"`
	Secret       string   `yaml:"secret"`  // webhook signing secret
	Secret2      string   `yaml:"secret2"` // second key where the provider uses two
	APIToken     string   `yaml:"api_token"`
	BaseURL      string   `yaml:"base_url" validate:"omitempty,url"`
	AllowedIPs   []string `yaml:"allowed_ips" validate:"dive,cidr|ip"`
	RejectWithOK bool     `yaml:"reject_with_ok"`
}

type Config struct {
	HTTP      HTTPConfig                `yaml:"http"`
	Log       LogConfig                 `yaml:"log"`
	Database  DatabaseConfig            `yaml:"database"`
	Redis     RedisConfig               `yaml:"redis"`
	Bot       BotConfig                 `yaml:"bot"`
	Panel     PanelConfig               `yaml:"panel"`
	Auth      AuthConfig                `yaml:"auth"`
	Payments  PaymentsConfig            `yaml:"payments"`
	Referral  ReferralConfig            `yaml:"referral"`
	Currency  CurrencyConfig            `yaml:"currency"`
	Providers map[string]ProviderConfig `yaml:"providers" validate:"dive"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, overlays secrets from the
// environment (a .env file next to the binary is loaded first when present),
// applies defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if _, ok := cfg.Currency.Rates[cfg.Currency.Reference]; !ok {
		cfg.Currency.Rates[cfg.Currency.Reference] = decimal.NewFromInt(1)
	}
	for code, rate := range cfg.Currency.Rates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("currency.rates.%s must be positive", code)
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Bot.Token, "BOT_TOKEN")
	set(&cfg.Panel.Token, "PANEL_TOKEN")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.WebhookTimeout <= 0 {
		cfg.HTTP.WebhookTimeout = 10 * time.Second
	}
	if cfg.HTTP.APITimeout <= 0 {
		cfg.HTTP.APITimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Panel.Timeout <= 0 {
		cfg.Panel.Timeout = 5 * time.Second
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Payments.ReconcileInterval <= 0 {
		cfg.Payments.ReconcileInterval = time.Minute
	}
	if cfg.Payments.StaleAfter <= 0 {
		cfg.Payments.StaleAfter = 10 * time.Minute
	}
	if cfg.Payments.OutboundTimeout <= 0 {
		cfg.Payments.OutboundTimeout = 8 * time.Second
	}
	if cfg.Payments.LockTTL <= 0 {
		cfg.Payments.LockTTL = 30 * time.Second
	}
	if cfg.Payments.Workers <= 0 {
		cfg.Payments.Workers = 4
	}
	if cfg.Payments.ReconcileLimit <= 0 {
		cfg.Payments.ReconcileLimit = 5
	}
	if cfg.Payments.ReconcileWindow <= 0 {
		cfg.Payments.ReconcileWindow = time.Minute
	}
	cfg.Referral.Mode = strings.ToUpper(strings.TrimSpace(cfg.Referral.Mode))
	if cfg.Referral.Mode == "" {
		cfg.Referral.Mode = "PERCENT"
	}
	cfg.Currency.Reference = strings.ToUpper(strings.TrimSpace(cfg.Currency.Reference))
	if cfg.Currency.Reference == "" {
		cfg.Currency.Reference = "RUB"
	}
	rates := make(map[string]decimal.Decimal, len(cfg.Currency.Rates)+1)
	for code, r := range cfg.Currency.Rates {
		rates[strings.ToUpper(strings.TrimSpace(code))] = r
	}
	cfg.Currency.Rates = rates
	providers := make(map[string]ProviderConfig, len(cfg.Providers))
	for name, p := range cfg.Providers {
		providers[strings.ToLower(strings.TrimSpace(name))] = p
	}
	cfg.Providers = providers
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
