package repository

import (
	"github.com/careerforge/careerforge/app/models"
	"gorm.io/gorm"
)

// coverLetterRepository implements the CoverLetterRepository interface
type coverLetterRepository struct {
	db *gorm.DB
}

// NewCoverLetterRepository creates a new cover letter repository instance
func NewCoverLetterRepository(db *gorm.DB) CoverLetterRepository {
	return &coverLetterRepository{db: db}
}

func (r *coverLetterRepository) Create(letter *models.CoverLetter) error {
	return r.db.Create(letter).Error
}

func (r *coverLetterRepository) GetByID(id uint) (*models.CoverLetter, error) {
	var letter models.CoverLetter
	if err := r.db.First(&letter, id).Error; err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *coverLetterRepository) GetByUUID(uuid string) (*models.CoverLetter, error) {
	var letter models.CoverLetter
	if err := r.db.Where("uuid = ?", uuid).First(&letter).Error; err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *coverLetterRepository) ListByUser(userID uint, offset, limit int) ([]models.CoverLetter, error) {
	var letters []models.CoverLetter
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&letters).Error
	return letters, err
}

func (r *coverLetterRepository) Complete(id uint, content, providerID string, tokensUsed int) (bool, error) {
	res := r.db.Model(&models.CoverLetter{}).
		Where("id = ? AND status = ?", id, models.GenerationStatusPending).
		Updates(map[string]interface{}{
			"status":      models.GenerationStatusCompleted,
			"content":     content,
			"provider_id": providerID,
			"tokens_used": tokensUsed,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *coverLetterRepository) Fail(id uint, reason string) (bool, error) {
	res := r.db.Model(&models.CoverLetter{}).
		Where("id = ? AND status = ?", id, models.GenerationStatusPending).
		Updates(map[string]interface{}{
			"status":         models.GenerationStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
