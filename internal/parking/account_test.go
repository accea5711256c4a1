package parking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLedgerOpenAndBalance(t *testing.T) {
	l := NewAccountLedger()

	require.NoError(t, l.Open("1020304050", 5000))

	balance, err := l.Balance("1020304050")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, balance)

	assert.Error(t, l.Open("1020304050", 100))
	assert.ErrorIs(t, l.Open("x", -1), ErrNegativeAmount)

	_, err = l.Balance("missing")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestAccountLedgerDebit(t *testing.T) {
	l := NewAccountLedger()
	require.NoError(t, l.Open("u1", 500))

	before, after, err := l.Debit("u1", 120.555)
	require.NoError(t, err)
	assert.Equal(t, 500.0, before)
	assert.Equal(t, 379.45, after)
}

func TestAccountLedgerDebitInsufficientFunds(t *testing.T) {
	l := NewAccountLedger()
	require.NoError(t, l.Open("u1", 500))

	_, _, err := l.Debit("u1", 620)
	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 500.0, insufficient.Balance)
	assert.Equal(t, 620.0, insufficient.Required)
	assert.Equal(t, 120.0, insufficient.Shortfall())

	// Nothing was mutated.
	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, balance)
}

func TestAccountLedgerCredit(t *testing.T) {
	l := NewAccountLedger()
	require.NoError(t, l.Open("u1", 500))

	before, after, err := l.Credit("u1", 200)
	require.NoError(t, err)
	assert.Equal(t, 500.0, before)
	assert.Equal(t, 700.0, after)

	_, _, err = l.Credit("u1", -5)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, _, err = l.Credit("missing", 10)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestAccountLedgerConcurrentDebits(t *testing.T) {
	l := NewAccountLedger()
	require.NoError(t, l.Open("u1", 100))

	// 25 competing debits of 10 against a balance of 100: exactly 10 may
	// succeed, and the balance never goes negative.
	var wg sync.WaitGroup
	successes := make(chan struct{}, 25)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := l.Debit("u1", 10); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 10, count)

	balance, err := l.Balance("u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 800.0, Round2(800.0000001))
	assert.Equal(t, 0.67, Round2(2.0/3.0))
	assert.Equal(t, 120.0, Round2(620.0-500.0))
}
