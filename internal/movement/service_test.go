package movement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/access"
	"github.com/finances-api/finances/internal/account"
	"github.com/finances-api/finances/internal/apperr"
	"github.com/finances-api/finances/internal/clock"
	"github.com/finances-api/finances/internal/ledger"
	"github.com/finances-api/finances/internal/logging"
	"github.com/finances-api/finances/internal/notification"
)

var (
	start = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	u1    = access.Principal{UserID: "u1", Roles: []access.Role{access.RoleUser}}
	u2    = access.Principal{UserID: "u2", Roles: []access.Role{access.RoleUser}}
	admin = access.Principal{UserID: "root", Roles: []access.Role{access.RoleAdmin}}
)

type fixture struct {
	svc      *Service
	accounts *account.Service
	ledger   ledger.Ledger
	clock    *clock.Fake
	notes    *notification.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := clock.NewFake(start)
	l := ledger.NewInMemory()
	accounts := account.NewService(l, nil, clk, logging.Discard())
	notes := &notification.Recorder{}
	return fixture{
		svc:      NewService(l, accounts, notes, clk, logging.Discard()),
		accounts: accounts,
		ledger:   l,
		clock:    clk,
		notes:    notes,
	}
}

func (f fixture) checking(t *testing.T) ledger.Account {
	t.Helper()
	acc, err := f.accounts.Create(context.Background(), u1, account.CreateInput{Name: "Checking", OwnerID: "u1", InitialBalance: decimal.Zero})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func (f fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, ok, err := f.ledger.Account(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("load account %s: %v", id, err)
	}
	return acc.Balance
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordCreditDebitAndRejectOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)

	if _, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: amount("10.00"), AccountID: acc.ID}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := f.balance(t, acc.ID); !got.Equal(amount("10.00")) {
		t.Fatalf("expected 10.00, got %s", got)
	}

	if _, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Debit, Amount: amount("10.00"), AccountID: acc.ID}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := f.balance(t, acc.ID); !got.IsZero() {
		t.Fatalf("expected 0.00, got %s", got)
	}

	_, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Debit, Amount: amount("1.00"), AccountID: acc.ID})
	if !errors.Is(err, apperr.ErrInvariant) {
		t.Fatalf("expected invariant failure, got %v", err)
	}
	if got := f.balance(t, acc.ID); !got.IsZero() {
		t.Fatalf("balance changed after rejected debit: %s", got)
	}

	if got := len(f.notes.Messages()); got != 2 {
		t.Fatalf("expected 2 notifications, got %d", got)
	}
	if f.notes.Messages()[0].Destination != "u1" {
		t.Fatalf("notification sent to the wrong user: %+v", f.notes.Messages()[0])
	}
}

func TestRecordValidatesAndAuthorizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)

	if _, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: decimal.Zero, AccountID: acc.ID}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := f.svc.Record(ctx, u2, RecordInput{Direction: ledger.Credit, Amount: amount("5"), AccountID: acc.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Record(ctx, admin, RecordInput{Direction: ledger.Credit, Amount: amount("5"), AccountID: "missing"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for admin, got %v", err)
	}
	if got := f.balance(t, acc.ID); !got.IsZero() {
		t.Fatalf("rejected movements changed the balance: %s", got)
	}
}

func TestRemoveRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)
	if _, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: amount("3.50"), AccountID: acc.ID}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
	before := f.balance(t, acc.ID)

	m, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: amount("10.00"), AccountID: acc.ID})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.svc.Remove(ctx, u2, m.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected stranger remove to be forbidden, got %v", err)
	}
	if err := f.svc.Remove(ctx, u1, m.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := f.balance(t, acc.ID); !got.Equal(before) {
		t.Fatalf("expected balance %s after removal, got %s", before, got)
	}

	if _, err := f.svc.FindByID(ctx, admin, m.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("admin should see not found, got %v", err)
	}
	if _, err := f.svc.FindByID(ctx, u2, m.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("non-admin should see forbidden, got %v", err)
	}
}

func TestRemoveCreditAfterSpendingIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)

	credit, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: amount("10"), AccountID: acc.ID})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Debit, Amount: amount("8"), AccountID: acc.ID}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if err := f.svc.Remove(ctx, u1, credit.ID); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := f.balance(t, acc.ID); !got.Equal(amount("2")) {
		t.Fatalf("expected balance 2 after failed reversal, got %s", got)
	}
	if _, err := f.svc.FindByID(ctx, u1, credit.ID); err != nil {
		t.Fatalf("credit should still exist: %v", err)
	}
}

func TestFindByPeriodAndAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)

	if _, err := f.svc.FindByPeriodAndAccount(ctx, u1, start, start.Add(time.Hour), acc.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on empty range, got %v", err)
	}

	var ids []string
	for i := 0; i < 4; i++ {
		m, err := f.svc.Record(ctx, u1, RecordInput{Direction: ledger.Credit, Amount: amount("1"), AccountID: acc.ID})
		if err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
		ids = append(ids, m.ID)
		f.clock.Advance(time.Hour)
	}

	got, err := f.svc.FindByPeriodAndAccount(ctx, u1, start.Add(time.Hour), start.Add(2*time.Hour), acc.ID)
	if err != nil {
		t.Fatalf("find by period: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[1] || got[1].ID != ids[2] {
		t.Fatalf("expected movements %v, got %v", ids[1:3], got)
	}

	if _, err := f.svc.FindByPeriodAndAccount(ctx, u2, start, start.Add(5*time.Hour), acc.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.FindByPeriodAndAccount(ctx, u1, start.Add(time.Hour), start, acc.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for reversed range, got %v", err)
	}
}

func TestConcurrentRecordsKeepBalanceConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.checking(t)

	const workers = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		expected = decimal.Zero
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, v := ledger.Credit, amount("7")
			if i%2 == 1 {
				d, v = ledger.Debit, amount("9")
			}
			_, err := f.svc.Record(ctx, u1, RecordInput{Direction: d, Amount: v, AccountID: acc.ID})
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				return
			}
			if err != nil {
				t.Errorf("record %d: %v", i, err)
				return
			}
			mu.Lock()
			if d == ledger.Credit {
				expected = expected.Add(v)
			} else {
				expected = expected.Sub(v)
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	got := f.balance(t, acc.ID)
	if got.IsNegative() {
		t.Fatalf("balance went negative: %s", got)
	}
	if !got.Equal(expected) {
		t.Fatalf("expected balance %s, got %s", expected, got)
	}
}
