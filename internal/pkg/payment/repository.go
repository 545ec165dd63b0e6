package payment

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/careerforge/careerforge/app/models"
)

// Repository provides DB operations used by the payment service. Status
// transitions are compare-and-set on the current status so duplicate webhook
// deliveries and concurrent sweeps stay correct.
type Repository interface {
	CreatePayment(p *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByExternalOrderID(orderID string) (*models.Payment, error)
	ListByUser(userID uint, offset, limit int) ([]models.Payment, error)
	CancelPendingByUser(userID uint, reason string) (int64, error)
	TransitionStatus(id uint, from, to string, updates map[string]interface{}) (bool, error)
	ExpirePending(now time.Time) (int64, error)
	ListUnappliedSuccess(olderThan time.Time, limit int) ([]models.Payment, error)
	ClaimCreditsApplied(id uint) (bool, error)
	ReleaseCreditsApplied(id uint) (bool, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetByExternalOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("external_order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListByUser(userID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) CancelPendingByUser(userID uint, reason string) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCancelled,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) TransitionStatus(id uint, from, to string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ExpirePending(now time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("status = ? AND expires_at < ?", models.PaymentStatusPending, now).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusExpired,
			"failure_reason": "order expired",
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) ListUnappliedSuccess(olderThan time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("status = ? AND credits_applied = ? AND updated_at < ?",
			models.PaymentStatusSuccess, false, olderThan).
		Order("id").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) ClaimCreditsApplied(id uint) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND credits_applied = ?", id, false).
		UpdateColumn("credits_applied", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ReleaseCreditsApplied(id uint) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND credits_applied = ?", id, true).
		UpdateColumn("credits_applied", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
