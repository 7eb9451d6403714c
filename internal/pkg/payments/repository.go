package payments

import (
	"time"

	"github.com/solacehq/solace/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payments service.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	SetPaymentCustomerID(id uint, customerID string) error
	CreateCheckoutIntent(intent *models.CheckoutIntent) error
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	// ApplyEventOnce claims the event row and runs apply inside the same
	// transaction. An already-claimed row returns (false, nil) without
	// calling apply; a failing apply rolls the claim back so redelivery
	// retries it.
	ApplyEventOnce(eventRowID uint, apply func(tx *gorm.DB) error) (bool, error)
	RecordProcessingError(id uint, processingError string) error
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SetPaymentCustomerID(id uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Update("payment_customer_id", customerID).Error
}

func (r *gormRepository) CreateCheckoutIntent(intent *models.CheckoutIntent) error {
	return r.db.Create(intent).Error
}

// completeCheckoutIntent consumes the matching open intent. Safe when no
// intent exists (sessions opened before a deploy, or replays).
func completeCheckoutIntent(db *gorm.DB, externalSessionID string) error {
	now := time.Now()
	return db.Model(&models.CheckoutIntent{}).
		Where("external_session_id = ? AND status = ?", externalSessionID, models.CheckoutStatusOpen).
		Updates(map[string]interface{}{
			"status":       models.CheckoutStatusCompleted,
			"completed_at": &now,
		}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
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
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) ApplyEventOnce(eventRowID uint, apply func(tx *gorm.DB) error) (bool, error) {
	claimed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.PaymentWebhookEvent{}).
			Where("id = ? AND processed_at IS NULL", eventRowID).
			Updates(map[string]interface{}{
				"processed_at":     &now,
				"processing_error": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone already applied this event.
			return nil
		}
		claimed = true
		return apply(tx)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (r *gormRepository) RecordProcessingError(id uint, processingError string) error {
	// Leaves processed_at untouched so the provider's redelivery retries.
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
