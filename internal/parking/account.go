package parking

import (
	"fmt"
	"math"
	"sync"
)

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AccountLedger owns prepaid balances, keyed by account holder identity.
// Every primitive runs under the ledger lock, so the balance check and the
// mutation of a debit can never interleave with another debit or credit.
type AccountLedger struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewAccountLedger() *AccountLedger {
	return &AccountLedger{balances: make(map[string]float64)}
}

// Open creates the account with an initial balance. Re-opening an existing
// account is an internal error.
func (l *AccountLedger) Open(accountID string, initial float64) error {
	if initial < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[accountID]; ok {
		return fmt.Errorf("account %s already exists", accountID)
	}
	l.balances[accountID] = Round2(initial)
	return nil
}

// Balance reports the current balance.
func (l *AccountLedger) Balance(accountID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[accountID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

// Debit atomically checks and subtracts amount. On insufficient funds nothing
// is mutated and the returned error carries balance and shortfall figures.
func (l *AccountLedger) Debit(accountID string, amount float64) (before, after float64, err error) {
	if amount < 0 {
		return 0, 0, ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[accountID]
	if !ok {
		return 0, 0, ErrUnknownAccount
	}
	if balance < amount {
		return balance, balance, &InsufficientFundsError{Balance: balance, Required: amount}
	}
	l.balances[accountID] = Round2(balance - amount)
	return balance, l.balances[accountID], nil
}

// Credit atomically adds amount and returns the balances around the mutation.
func (l *AccountLedger) Credit(accountID string, amount float64) (before, after float64, err error) {
	if amount < 0 {
		return 0, 0, ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[accountID]
	if !ok {
		return 0, 0, ErrUnknownAccount
	}
	l.balances[accountID] = Round2(balance + amount)
	return balance, l.balances[accountID], nil
}
