package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/careerforge/careerforge/app/models"
)

var (
	// ErrInsufficientFunds is returned when a debit would take the balance
	// negative. Callers must not retry blindly; the check is authoritative.
	ErrInsufficientFunds = errors.New("insufficient credit balance")
	// ErrAccountNotFound is returned when no credit account exists for the user.
	ErrAccountNotFound = errors.New("credit account not found")
)

// Ledger owns the per-user credit balance. All mutations are single
// conditional UPDATE statements so concurrent workers never lose updates,
// even across processes.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GetOrCreateAccount ensures a credit account row exists for the user and
// returns it. Safe to call concurrently; the unique index on user_id makes
// the insert idempotent.
func (l *Ledger) GetOrCreateAccount(userID uint) (*models.CreditAccount, error) {
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	account := &models.CreditAccount{UserID: userID}
	if err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(account).Error; err != nil {
		return nil, err
	}

	var stored models.CreditAccount
	if err := l.db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Debit atomically decrements the balance iff balance >= amount and returns
// the new balance. The guard lives in the WHERE clause; there is no
// read-then-write window.
func (l *Ledger) Debit(userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	res := l.db.Model(&models.CreditAccount{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing account from an underfunded one.
		var account models.CreditAccount
		if err := l.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrAccountNotFound
			}
			return 0, err
		}
		return account.Balance, ErrInsufficientFunds
	}

	return l.Balance(userID)
}

// Credit atomically increments the balance and returns the new balance.
func (l *Ledger) Credit(userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	res := l.db.Model(&models.CreditAccount{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrAccountNotFound
	}

	return l.Balance(userID)
}

// Balance reads the current balance for the user.
func (l *Ledger) Balance(userID uint) (int64, error) {
	var account models.CreditAccount
	if err := l.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return account.Balance, nil
}
