package models

import (
	"time"

	"gorm.io/gorm"
)

// Chat message roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(200);default:''" json:"title" validate:"max=200"`
	Messages  []ChatMessage  `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChatMessage is a single turn in a mentor chat. Assistant messages are
// created pending and filled in by the generation pipeline.
type ChatMessage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	SessionID     uint      `gorm:"not null;index" json:"session_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Role          string    `gorm:"type:varchar(20);not null" json:"role" validate:"oneof=user assistant"`
	Content       string    `gorm:"type:longtext" json:"content"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason string    `gorm:"type:varchar(100);default:''" json:"failure_reason,omitempty"`
	ProviderID    string    `gorm:"type:varchar(50);default:''" json:"provider_id,omitempty"`
	TokensUsed    int       `gorm:"not null;default:0" json:"tokens_used"`
	CreditCost    int64     `gorm:"not null;default:0" json:"credit_cost"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
