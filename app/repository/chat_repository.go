package repository

import (
	"github.com/careerforge/careerforge/app/models"
	"gorm.io/gorm"
)

// chatRepository implements the ChatRepository interface
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository instance
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(session *models.ChatSession) error {
	return r.db.Create(session).Error
}

func (r *chatRepository) GetSessionByID(id uint) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatRepository) GetSessionByUUID(uuid string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.Where("uuid = ?", uuid).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *chatRepository) ListSessionsByUser(userID uint, offset, limit int) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *chatRepository) CreateMessage(msg *models.ChatMessage) error {
	return r.db.Create(msg).Error
}

func (r *chatRepository) GetMessageByID(id uint) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatRepository) GetMessageByUUID(uuid string) (*models.ChatMessage, error) {
	var msg models.ChatMessage
	if err := r.db.Where("uuid = ?", uuid).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListSessionMessages returns the most recent completed turns plus any
// pending user turns, oldest first, for prompt context.
func (r *chatRepository) ListSessionMessages(sessionID uint, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []models.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepository) CompleteMessage(id uint, content, providerID string, tokensUsed int) (bool, error) {
	res := r.db.Model(&models.ChatMessage{}).
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

func (r *chatRepository) FailMessage(id uint, reason string) (bool, error) {
	res := r.db.Model(&models.ChatMessage{}).
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
