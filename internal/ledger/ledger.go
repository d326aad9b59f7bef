package ledger

import (
	"context"
	"time"

	"github.com/finances-api/finances/internal/apperr"
)

var (
	// ErrInsufficientBalance occurs when a debit, or the reversal of a credit,
	// exceeds the current balance.
	ErrInsufficientBalance = &apperr.Error{Kind: apperr.ErrInvariant, Message: "Value to subtract cannot be greater than balance"}

	// ErrNegativeCredit rejects a negative amount passed to Credit.
	ErrNegativeCredit = &apperr.Error{Kind: apperr.ErrValidation, Message: "Value to add cannot be negative"}

	// ErrNegativeDebit rejects a negative amount passed to Debit.
	ErrNegativeDebit = &apperr.Error{Kind: apperr.ErrValidation, Message: "Value to subtract cannot be negative"}

	// ErrNegativeInitialBalance rejects accounts opened below zero.
	ErrNegativeInitialBalance = &apperr.Error{Kind: apperr.ErrValidation, Message: "Initial balance cannot be negative"}

	// ErrInvalidAmount rejects movements whose magnitude is not strictly positive.
	ErrInvalidAmount = &apperr.Error{Kind: apperr.ErrValidation, Message: "value has to be a positive value"}

	// ErrAccountNotFound is returned by Post when the account vanished.
	ErrAccountNotFound = &apperr.Error{Kind: apperr.ErrNotFound, Message: "bank account not found"}

	// ErrMovementNotFound is returned by Reverse when the movement vanished.
	ErrMovementNotFound = &apperr.Error{Kind: apperr.ErrNotFound, Message: "movement not found"}
)

// Ledger is the account and movement store. Post and Reverse are the only
// ways a balance changes; each runs its read-modify-write of the balance and
// the movement insert or delete as one atomic step per account.
type Ledger interface {
	CreateAccount(ctx context.Context, account Account) (Account, error)
	Account(ctx context.Context, id string) (Account, bool, error)
	RenameAccount(ctx context.Context, id, name string) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
	AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error)

	Movement(ctx context.Context, id string) (Movement, bool, error)
	MovementsBetween(ctx context.Context, accountID string, start, end time.Time) ([]Movement, error)

	// Post applies m to its account and stores both.
	Post(ctx context.Context, m Movement) (Movement, Account, error)
	// Reverse applies the inverse of the movement to its account, then removes it.
	Reverse(ctx context.Context, movementID string) (Account, error)
}
