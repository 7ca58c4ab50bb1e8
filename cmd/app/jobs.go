// File: cmd/app/jobs.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vpn-billing/internal/infra/sched"
	"vpn-billing/internal/usecase"
)

func reconcileCmd(flags *rootFlags) *cobra.Command {
	var (
		userID   string
		orderRef string
		stale    time.Duration
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Poll providers for pending payments once and fulfill confirmed ones",
		Long: `Runs one reconciliation pass and prints the counts as JSON.

With --user only that user's pending payments are polled; --order narrows it
to one payment of that user. Without either, every payment pending for longer
than --stale is polled (up to --limit).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderRef != "" && userID == "" {
				return errors.New("--order requires --user")
			}
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()
			a.startWorkers(ctx)

			var res usecase.ReconcileResult
			switch {
			case orderRef != "":
				res, err = a.reconcile.ReconcilePayment(ctx, userID, orderRef)
			case userID != "":
				res, err = a.reconcile.ReconcileUser(ctx, userID)
			default:
				if stale <= 0 {
					stale = a.cfg.Payments.StaleAfter
				}
				res, err = a.reconcile.ReconcileStale(ctx, stale, limit)
			}
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "reconcile this user's pending payments")
	cmd.Flags().StringVar(&orderRef, "order", "", "reconcile one order (requires --user)")
	cmd.Flags().DurationVar(&stale, "stale", 0, "minimum age of pending payments (default payments.stale_after)")
	cmd.Flags().IntVar(&limit, "limit", 200, "maximum payments per pass")
	return cmd
}

func sweepCmd(flags *rootFlags) *cobra.Command {
	var after time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire payments that stayed PENDING longer than the configured TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close()

			if after <= 0 {
				after = a.cfg.Payments.ExpireAfter
			}
			if after <= 0 {
				return errors.New("payments.expire_after is 0; pass --after to sweep anyway")
			}
			return sched.NewExpirySweeper(a.payments, after, a.log).Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&after, "after", 0, "pending age to expire (default payments.expire_after)")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
