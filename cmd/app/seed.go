// File: cmd/app/seed.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vpn-billing/internal/config"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/api"
)

var seedTariffs = []model.Tariff{
	{ID: "month", Name: "1 month", DurationDays: 30, TrafficLimitBytes: 100 * model.GiB, DeviceLimit: 3, Groups: []string{"default"}, Price: decimal.NewFromInt(199), Currency: "RUB"},
	{ID: "quarter", Name: "3 months", DurationDays: 90, BonusDays: 7, TrafficLimitBytes: 300 * model.GiB, DeviceLimit: 3, Groups: []string{"default"}, Price: decimal.NewFromInt(549), Currency: "RUB"},
	{ID: "year-unlimited", Name: "12 months unlimited", DurationDays: 365, BonusDays: 30, Groups: []string{"default", "premium"}, Price: decimal.NewFromInt(1990), Currency: "RUB"},
}

var seedOptions = []model.Option{
	{ID: "traffic-50", Name: "+50 GB", Type: model.OptionTraffic, Value: "50", Price: decimal.NewFromInt(79), Currency: "RUB"},
	{ID: "devices-2", Name: "+2 devices", Type: model.OptionDevices, Value: "2", Price: decimal.NewFromInt(59), Currency: "RUB"},
	{ID: "group-nl", Name: "Netherlands servers", Type: model.OptionGroup, Value: "nl", Price: decimal.NewFromInt(99), Currency: "RUB"},
}

func seedCmd(flags *rootFlags) *cobra.Command {
	var (
		telegramID int64
		provider   string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo tariffs and options, optionally a user with pending orders",
		Long: `Upserts a small demo catalog. With --telegram-id it also creates a user
and one pending payment per purchase kind, and prints their order ids so the
webhook and reconcile paths can be exercised by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()

			now := time.Now().UTC()
			for i := range seedTariffs {
				t := seedTariffs[i]
				t.CreatedAt = now
				if err := a.tariffs.Save(ctx, repository.NoTX, &t); err != nil {
					return fmt.Errorf("seed tariff %s: %w", t.ID, err)
				}
				fmt.Printf("tariff  %-16s %3d+%d days  %s %s\n", t.ID, t.DurationDays, t.BonusDays, t.Price, t.Currency)
			}
			for i := range seedOptions {
				o := seedOptions[i]
				o.CreatedAt = now
				if err := a.options.Save(ctx, repository.NoTX, &o); err != nil {
					return fmt.Errorf("seed option %s: %w", o.ID, err)
				}
				fmt.Printf("option  %-16s %-8s %s\n", o.ID, o.Type, o.Value)
			}

			if telegramID == 0 {
				return nil
			}
			return seedUser(ctx, a, telegramID, provider, now)
		},
	}
	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "also create a demo user with this telegram id")
	cmd.Flags().StringVar(&provider, "provider", "cryptobot", "provider recorded on the demo payments")
	return cmd
}

func seedUser(ctx context.Context, a *app, telegramID int64, provider string, now time.Time) error {
	u, err := model.NewUser(fmt.Sprintf("demo-%d", telegramID), telegramID, "demo")
	if err != nil {
		return err
	}
	if err := a.users.Save(ctx, repository.NoTX, u); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	month := seedTariffs[0].ID
	orders := []*model.Payment{
		{TariffID: &month, Description: "subscription " + month, Amount: seedTariffs[0].Price, Currency: "RUB"},
		{Description: model.OptionDescription(seedOptions[0].ID), Amount: seedOptions[0].Price, Currency: "RUB"},
		{Description: "balance top-up", Amount: decimal.NewFromInt(500), Currency: "RUB"},
	}
	for _, p := range orders {
		p.ID = ulid.Make().String()
		p.OrderID = ulid.Make().String()
		p.UserID = u.ID
		p.Status = model.PaymentStatusPending
		p.Provider = provider
		p.CreatedAt, p.UpdatedAt = now, now
		if err := a.payments.Save(ctx, repository.NoTX, p); err != nil {
			return fmt.Errorf("seed payment: %w", err)
		}
		fmt.Printf("payment %-8s order=%s amount=%s %s\n", p.Kind(), p.OrderID, p.Amount, p.Currency)
	}

	tok, err := api.NewAuthenticator(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL).Mint(u.ID, u.TelegramID)
	if err != nil {
		return err
	}
	fmt.Printf("user    %s token=%s\n", u.ID, tok)
	return nil
}

func tokenCmd(flags *rootFlags) *cobra.Command {
	var (
		userID     string
		telegramID int64
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the user API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath, flags.dev)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			tok, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Mint(userID, telegramID)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "telegram id claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
