package models

import "time"

// Payment status values. Every status except pending is terminal: once a
// payment leaves pending it never transitions again.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSuccess   = "success"
	PaymentStatusFailed    = "failed"
	PaymentStatusExpired   = "expired"
	PaymentStatusCancelled = "cancelled"
)

// Payment is the audit record of a credit top-up order. Rows are never
// deleted; settlement is driven exclusively by verified gateway webhooks.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	Amount            int64      `gorm:"not null" json:"amount" validate:"gt=0"`
	Currency          string     `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	ExternalOrderID   string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"external_order_id"`
	ExternalPaymentID string     `gorm:"type:varchar(100);default:null" json:"external_payment_id,omitempty"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreditsToAdd      int64      `gorm:"not null" json:"credits_to_add"`
	CreditsApplied    bool       `gorm:"not null;default:false;index" json:"credits_applied"`
	FailureReason     string     `gorm:"type:varchar(255);default:''" json:"failure_reason,omitempty"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	VerifiedAt        *time.Time `gorm:"type:timestamp;default:null" json:"verified_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the payment reached a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentStatusPending
}
