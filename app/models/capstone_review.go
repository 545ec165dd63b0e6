package models

import (
	"time"

	"gorm.io/gorm"
)

type CapstoneReview struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	ProjectTitle    string         `gorm:"type:varchar(200);not null" json:"project_title" validate:"required,max=200"`
	RepoURL         string         `gorm:"type:varchar(500);default:''" json:"repo_url" validate:"omitempty,url,max=500"`
	SubmissionNotes string         `gorm:"type:longtext" json:"submission_notes" validate:"required"`
	Review          string         `gorm:"type:longtext" json:"review"`
	Score           int            `gorm:"not null;default:0" json:"score"`
	Status          string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason   string         `gorm:"type:varchar(100);default:''" json:"failure_reason,omitempty"`
	ProviderID      string         `gorm:"type:varchar(50);default:''" json:"provider_id,omitempty"`
	TokensUsed      int            `gorm:"not null;default:0" json:"tokens_used"`
	CreditCost      int64          `gorm:"not null;default:0" json:"credit_cost"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
