package models

import "time"

// CreditAccount holds a user's spendable credit balance. The balance is only
// ever mutated through atomic conditional updates in the ledger package; the
// non-negative invariant is enforced by the guarded decrement, not by code
// reading and writing the field.
type CreditAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
