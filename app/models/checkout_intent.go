package models

import "time"

// Checkout intent statuses.
const (
	CheckoutStatusOpen      = "open"
	CheckoutStatusCompleted = "completed"
)

// CheckoutIntent records a hosted checkout session opened for an account.
// It is consumed at most once by the matching payment webhook event.
type CheckoutIntent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	AccountID         uint       `gorm:"not null;index" json:"account_id"`
	GrantUnits        int64      `gorm:"not null" json:"grant_units"`
	ExternalSessionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_checkout_intents_session" json:"external_session_id"`
	Status            string     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	CompletedAt       *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
