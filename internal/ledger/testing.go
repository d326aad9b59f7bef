package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites an account balance when using
// the in-memory ledger, bypassing movements.
func SeedBalance(l Ledger, accountID string, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if account, exists := mem.accounts[accountID]; exists {
			account.Balance = amount
			mem.accounts[accountID] = account
		}
	}
}
