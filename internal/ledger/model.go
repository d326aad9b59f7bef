package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/finances-api/finances/internal/apperr"
)

// MaxNameLength bounds the display name of an account, in characters.
const MaxNameLength = 100

// Direction says whether a movement increases or decreases a balance.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// ParseDirection accepts CREDIT/DEBIT, the legacy INPUT/OUTPUT names and the
// numeric codes 1/2, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CREDIT", "INPUT", "1":
		return Credit, nil
	case "DEBIT", "OUTPUT", "2":
		return Debit, nil
	default:
		return "", apperr.Validation("invalid movement direction %q", s)
	}
}

// Inverse returns the direction that undoes d.
func (d Direction) Inverse() Direction {
	if d == Credit {
		return Debit
	}
	return Credit
}

// Valid reports whether d is one of the two directions.
func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// Account is a named, balance-bearing container owned by one user.
type Account struct {
	ID        string
	Name      string
	Balance   decimal.Decimal
	OwnerID   string
	CreatedAt time.Time
}

// NewAccount validates the inputs of a new account. The ID is left to the caller.
func NewAccount(name, ownerID string, initialBalance decimal.Decimal, createdAt time.Time) (Account, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return Account{}, apperr.Validation("User is mandatory")
	}
	if initialBalance.IsNegative() {
		return Account{}, ErrNegativeInitialBalance
	}
	return Account{
		Name:      name,
		Balance:   initialBalance,
		OwnerID:   ownerID,
		CreatedAt: Timestamp(createdAt),
	}, nil
}

// Timestamp normalizes t to UTC at the microsecond precision TIMESTAMPTZ
// keeps, so a stored instant reads back equal to the one returned on write.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// ValidateName checks the display name rules.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("Account name cannot be empty or null")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperr.Validation("Account name cannot be longer than %d characters", MaxNameLength)
	}
	return nil
}

// Credit returns a copy of a with amount added. Zero is accepted.
func (a Account) Credit(amount decimal.Decimal) (Account, error) {
	if amount.IsNegative() {
		return a, ErrNegativeCredit
	}
	a.Balance = a.Balance.Add(amount)
	return a, nil
}

// Debit returns a copy of a with amount removed. The balance never goes
// below zero.
func (a Account) Debit(amount decimal.Decimal) (Account, error) {
	if amount.IsNegative() {
		return a, ErrNegativeDebit
	}
	if amount.GreaterThan(a.Balance) {
		return a, ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return a, nil
}

// Apply credits or debits according to d.
func (a Account) Apply(d Direction, amount decimal.Decimal) (Account, error) {
	switch d {
	case Credit:
		return a.Credit(amount)
	case Debit:
		return a.Debit(amount)
	default:
		return a, apperr.Validation("invalid movement direction %q", string(d))
	}
}

// Movement is one balance change against one account.
type Movement struct {
	ID        string
	Direction Direction
	Amount    decimal.Decimal
	CreatedAt time.Time
	AccountID string
}

// NewMovement validates a movement before it is posted.
func NewMovement(d Direction, amount decimal.Decimal, accountID string, createdAt time.Time) (Movement, error) {
	if !d.Valid() {
		return Movement{}, apperr.Validation("movement type is mandatory")
	}
	if !amount.IsPositive() {
		return Movement{}, ErrInvalidAmount
	}
	if strings.TrimSpace(accountID) == "" {
		return Movement{}, apperr.Validation("bank account is mandatory")
	}
	return Movement{Direction: d, Amount: amount, AccountID: accountID, CreatedAt: Timestamp(createdAt)}, nil
}

// Effect returns the signed change m applied to its account.
func (m Movement) Effect() decimal.Decimal {
	if m.Direction == Debit {
		return m.Amount.Neg()
	}
	return m.Amount
}

func (m Movement) String() string {
	return fmt.Sprintf("%s %s on %s", m.Direction, m.Amount.String(), m.AccountID)
}
