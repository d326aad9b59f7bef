package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finances-api/finances/internal/apperr"
)

type inMemoryLedger struct {
	mu        sync.RWMutex
	accounts  map[string]Account
	movements map[string]Movement
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and local development.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		accounts:  make(map[string]Account),
		movements: make(map[string]Movement),
	}
}

func (l *inMemoryLedger) CreateAccount(_ context.Context, account Account) (Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[account.ID]; exists {
		return Account{}, apperr.Conflict("bank account %s already exists", account.ID)
	}
	l.accounts[account.ID] = account
	return account, nil
}

func (l *inMemoryLedger) Account(_ context.Context, id string) (Account, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	account, ok := l.accounts[id]
	return account, ok, nil
}

func (l *inMemoryLedger) RenameAccount(_ context.Context, id, name string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	account.Name = name
	l.accounts[id] = account
	return account, nil
}

func (l *inMemoryLedger) DeleteAccount(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	for movementID, m := range l.movements {
		if m.AccountID == id {
			delete(l.movements, movementID)
		}
	}
	delete(l.accounts, id)
	return nil
}

func (l *inMemoryLedger) AccountsByOwner(_ context.Context, ownerID string) ([]Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Account
	for _, account := range l.accounts {
		if account.OwnerID == ownerID {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *inMemoryLedger) Movement(_ context.Context, id string) (Movement, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.movements[id]
	return m, ok, nil
}

func (l *inMemoryLedger) MovementsBetween(_ context.Context, accountID string, start, end time.Time) ([]Movement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Movement
	for _, m := range l.movements {
		if m.AccountID != accountID {
			continue
		}
		if m.CreatedAt.Before(start) || m.CreatedAt.After(end) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *inMemoryLedger) Post(_ context.Context, m Movement) (Movement, Account, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.movements[m.ID]; exists {
		return Movement{}, Account{}, apperr.Conflict("movement %s already exists", m.ID)
	}
	account, ok := l.accounts[m.AccountID]
	if !ok {
		return Movement{}, Account{}, ErrAccountNotFound
	}

	updated, err := account.Apply(m.Direction, m.Amount)
	if err != nil {
		return Movement{}, account, err
	}

	l.movements[m.ID] = m
	l.accounts[updated.ID] = updated
	return m, updated, nil
}

func (l *inMemoryLedger) Reverse(_ context.Context, movementID string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.movements[movementID]
	if !ok {
		return Account{}, ErrMovementNotFound
	}
	account, ok := l.accounts[m.AccountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}

	updated, err := account.Apply(m.Direction.Inverse(), m.Amount)
	if err != nil {
		return account, err
	}

	l.accounts[updated.ID] = updated
	delete(l.movements, movementID)
	return updated, nil
}
