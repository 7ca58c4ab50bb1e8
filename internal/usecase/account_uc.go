package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"vpn-billing/internal/domain"
	"vpn-billing/internal/domain/model"
	"vpn-billing/internal/domain/ports/adapter"
	"vpn-billing/internal/domain/ports/repository"
	"vpn-billing/internal/infra/logging"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

type AccountUseCase interface {
	// Snapshot returns the panel state of an account the user owns.
	Snapshot(ctx context.Context, userID, accountID string) (*model.Entitlement, error)
	List(ctx context.Context, userID string) ([]*model.Account, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	panel    adapter.EntitlementClient // cached client
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, panel adapter.EntitlementClient, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, panel: panel, log: logger}
}

func (u *accountUC) Snapshot(ctx context.Context, userID, accountID string) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Snapshot")()

	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	if acc.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return u.panel.GetAccount(ctx, accountID)
}

func (u *accountUC) List(ctx context.Context, userID string) ([]*model.Account, error) {
	return u.accounts.ListByUser(ctx, repository.NoTX, userID)
}
