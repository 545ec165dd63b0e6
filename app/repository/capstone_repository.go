package repository

import (
	"github.com/careerforge/careerforge/app/models"
	"gorm.io/gorm"
)

// capstoneReviewRepository implements the CapstoneReviewRepository interface
type capstoneReviewRepository struct {
	db *gorm.DB
}

// NewCapstoneReviewRepository creates a new capstone review repository instance
func NewCapstoneReviewRepository(db *gorm.DB) CapstoneReviewRepository {
	return &capstoneReviewRepository{db: db}
}

func (r *capstoneReviewRepository) Create(review *models.CapstoneReview) error {
	return r.db.Create(review).Error
}

func (r *capstoneReviewRepository) GetByID(id uint) (*models.CapstoneReview, error) {
	var review models.CapstoneReview
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *capstoneReviewRepository) GetByUUID(uuid string) (*models.CapstoneReview, error) {
	var review models.CapstoneReview
	if err := r.db.Where("uuid = ?", uuid).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *capstoneReviewRepository) ListByUser(userID uint, offset, limit int) ([]models.CapstoneReview, error) {
	var reviews []models.CapstoneReview
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (r *capstoneReviewRepository) Complete(id uint, review string, score int, providerID string, tokensUsed int) (bool, error) {
	res := r.db.Model(&models.CapstoneReview{}).
		Where("id = ? AND status = ?", id, models.GenerationStatusPending).
		Updates(map[string]interface{}{
			"status":      models.GenerationStatusCompleted,
			"review":      review,
			"score":       score,
			"provider_id": providerID,
			"tokens_used": tokensUsed,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *capstoneReviewRepository) Fail(id uint, reason string) (bool, error) {
	res := r.db.Model(&models.CapstoneReview{}).
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
