package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Argument validation runs before any SQL, so a nil DB handle is fine here.
// The guarded-decrement semantics themselves are covered against a real MySQL
// in the migration-backed integration environment and, at the contract level,
// by the orchestrator and payment suites.

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	l := New(nil)

	tests := []struct {
		name   string
		amount int64
	}{
		{name: "zero", amount: 0},
		{name: "negative", amount: -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Debit(1, tt.amount)
			assert.Error(t, err)
		})
	}
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	l := New(nil)

	_, err := l.Credit(1, 0)
	assert.Error(t, err)
	_, err = l.Credit(1, -100)
	assert.Error(t, err)
}

func TestGetOrCreateAccountRequiresUser(t *testing.T) {
	l := New(nil)

	_, err := l.GetOrCreateAccount(0)
	assert.Error(t, err)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrInsufficientFunds, ErrAccountNotFound)
	assert.NotErrorIs(t, ErrAccountNotFound, ErrInsufficientFunds)
}
