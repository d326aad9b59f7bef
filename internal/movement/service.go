package movement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/account"
	"github.com/finances-api/finances/internal/apperr"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/ledger"
	"github.com/finances-api/finances/internal/notification"
)

// Service records and removes movements. Balance changes go through the
// ledger's atomic Post and Reverse.
type Service struct {
	ledger   ledger.Ledger
	accounts *account.Service
	notifier notification.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService constructs a movement service.
func NewService(l ledger.Ledger, accounts *account.Service, notifier notification.Notifier, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, accounts: accounts, notifier: notifier, clock: clk, logger: logger}
}

// RecordInput captures the data needed to post a movement.
type RecordInput struct {
	Direction ledger.Direction
	Amount    decimal.Decimal
	AccountID string
}

// Record posts a credit or debit to an account the caller may access. A debit
// larger than the balance is rejected and nothing is stored.
func (s *Service) Record(ctx context.Context, p access.Principal, in RecordInput) (ledger.Movement, error) {
	draft, err := ledger.NewMovement(in.Direction, in.Amount, in.AccountID, s.clock.Now())
	if err != nil {
		return ledger.Movement{}, err
	}

	acc, err := s.accounts.FindByID(ctx, p, in.AccountID)
	if err != nil {
		return ledger.Movement{}, err
	}

	draft.ID = uuid.NewString()
	m, updated, err := s.ledger.Post(ctx, draft)
	if err != nil {
		s.logger.Warn("movement rejected", "account_id", acc.ID, "direction", string(in.Direction), "error", err)
		return ledger.Movement{}, err
	}

	s.logger.Info("movement recorded", "movement_id", m.ID, "account_id", m.AccountID, "direction", string(m.Direction), "user_id", p.UserID)
	s.notify(ctx, notification.KindMovementRecorded, updated, fmt.Sprintf("%s recorded, balance %s", m, updated.Balance))
	return m, nil
}

// FindByID returns the movement when the caller may access its account.
func (s *Service) FindByID(ctx context.Context, p access.Principal, id string) (ledger.Movement, error) {
	m, ok, err := s.ledger.Movement(ctx, id)
	if err != nil {
		return ledger.Movement{}, err
	}
	if !ok {
		return ledger.Movement{}, access.NotFoundOr(p, apperr.NotFound("No movement with id %s", id))
	}
	if _, err := s.accounts.FindByID(ctx, p, m.AccountID); err != nil {
		return ledger.Movement{}, err
	}
	return m, nil
}

// Remove reverses the movement's effect on its account, then deletes it.
func (s *Service) Remove(ctx context.Context, p access.Principal, id string) error {
	m, err := s.FindByID(ctx, p, id)
	if err != nil {
		return err
	}
	updated, err := s.ledger.Reverse(ctx, m.ID)
	if err != nil {
		s.logger.Warn("movement reversal rejected", "movement_id", m.ID, "account_id", m.AccountID, "error", err)
		return err
	}

	s.logger.Info("movement removed", "movement_id", m.ID, "account_id", m.AccountID, "user_id", p.UserID)
	s.notify(ctx, notification.KindMovementRemoved, updated, fmt.Sprintf("%s removed, balance %s", m, updated.Balance))
	return nil
}

// FindByPeriodAndAccount lists the account's movements with a timestamp in
// [start, end], or not found when there is none.
func (s *Service) FindByPeriodAndAccount(ctx context.Context, p access.Principal, start, end time.Time, accountID string) ([]ledger.Movement, error) {
	if start.After(end) {
		return nil, apperr.Validation("start date must not be after end date")
	}
	if _, err := s.accounts.FindByID(ctx, p, accountID); err != nil {
		return nil, err
	}
	movements, err := s.ledger.MovementsBetween(ctx, accountID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, apperr.NotFound("No movements for bank account %s between %s and %s", accountID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return movements, nil
}

func (s *Service) notify(ctx context.Context, kind string, acc ledger.Account, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: acc.OwnerID, Body: body}); err != nil {
		s.logger.Warn("notification failed", "kind", kind, "account_id", acc.ID, "error", err)
	}
}
