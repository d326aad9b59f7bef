package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/apperr"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/ledger"
)

// Owners tells whether a user exists.
type Owners interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service exposes ownership-checked bank account operations backed by the ledger.
type Service struct {
	ledger ledger.Ledger
	owners Owners
	clock  clock.Clock
	logger *slog.Logger
}

// NewService builds an account service instance.
func NewService(l ledger.Ledger, owners Owners, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, owners: owners, clock: clk, logger: logger}
}

// CreateInput captures data required to open a bank account.
type CreateInput struct {
	Name           string
	OwnerID        string
	InitialBalance decimal.Decimal
}

// Create opens an account for OwnerID. Callers may only open accounts for
// themselves unless they are admins.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (ledger.Account, error) {
	if err := access.Authorize(p, in.OwnerID); err != nil {
		return ledger.Account{}, err
	}

	draft, err := ledger.NewAccount(in.Name, in.OwnerID, in.InitialBalance, s.clock.Now())
	if err != nil {
		return ledger.Account{}, err
	}

	if s.owners != nil {
		exists, err := s.owners.Exists(ctx, in.OwnerID)
		if err != nil {
			return ledger.Account{}, err
		}
		if !exists {
			return ledger.Account{}, apperr.NotFound("No user with id %s", in.OwnerID)
		}
	}

	account, err := s.ledger.CreateAccount(ctx, draft)
	if err != nil {
		return ledger.Account{}, err
	}
	s.logger.Info("bank account created", "account_id", account.ID, "user_id", account.OwnerID)
	return account, nil
}

// FindByID returns the account when p owns it or is an admin. A missing
// account is reported as not found to admins only.
func (s *Service) FindByID(ctx context.Context, p access.Principal, id string) (ledger.Account, error) {
	account, ok, err := s.ledger.Account(ctx, id)
	if err != nil {
		return ledger.Account{}, err
	}
	if !ok {
		return ledger.Account{}, access.NotFoundOr(p, apperr.NotFound("No bank account with id %s", id))
	}
	if err := access.Authorize(p, account.OwnerID); err != nil {
		s.logger.Warn("bank account access denied", "account_id", id, "user_id", p.UserID)
		return ledger.Account{}, err
	}
	return account, nil
}

// Rename replaces the display name. The balance is not touched.
func (s *Service) Rename(ctx context.Context, p access.Principal, id, name string) (ledger.Account, error) {
	if _, err := s.FindByID(ctx, p, id); err != nil {
		return ledger.Account{}, err
	}
	name = strings.TrimSpace(name)
	if err := ledger.ValidateName(name); err != nil {
		return ledger.Account{}, err
	}
	account, err := s.ledger.RenameAccount(ctx, id, name)
	if err != nil {
		return ledger.Account{}, err
	}
	s.logger.Info("bank account renamed", "account_id", id, "user_id", p.UserID)
	return account, nil
}

// DeleteByID removes the account together with its movements.
func (s *Service) DeleteByID(ctx context.Context, p access.Principal, id string) error {
	if _, err := s.FindByID(ctx, p, id); err != nil {
		return err
	}
	if err := s.ledger.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.logger.Info("bank account deleted", "account_id", id, "user_id", p.UserID)
	return nil
}

// ListByOwner returns every account of ownerID, or not found when there is none.
func (s *Service) ListByOwner(ctx context.Context, p access.Principal, ownerID string) ([]ledger.Account, error) {
	if err := access.Authorize(p, ownerID); err != nil {
		return nil, err
	}
	accounts, err := s.ledger.AccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, apperr.NotFound("No bank accounts for user %s", ownerID)
	}
	return accounts, nil
}
