package repository

import (
	"github.com/careerforge/careerforge/app/models"
	"gorm.io/gorm"
)

// roadmapRepository implements the RoadmapRepository interface
type roadmapRepository struct {
	db *gorm.DB
}

// NewRoadmapRepository creates a new roadmap repository instance
func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

func (r *roadmapRepository) Create(roadmap *models.Roadmap) error {
	return r.db.Create(roadmap).Error
}

func (r *roadmapRepository) GetByID(id uint) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	if err := r.db.First(&roadmap, id).Error; err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *roadmapRepository) GetByUUID(uuid string) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	if err := r.db.Where("uuid = ?", uuid).First(&roadmap).Error; err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *roadmapRepository) ListByUser(userID uint, offset, limit int) ([]models.Roadmap, error) {
	var roadmaps []models.Roadmap
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&roadmaps).Error
	return roadmaps, err
}

func (r *roadmapRepository) Complete(id uint, content, providerID string, tokensUsed int) (bool, error) {
	res := r.db.Model(&models.Roadmap{}).
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

func (r *roadmapRepository) Fail(id uint, reason string) (bool, error) {
	res := r.db.Model(&models.Roadmap{}).
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
