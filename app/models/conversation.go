package models

import "time"

// Message roles. The set is closed; request bodies carrying anything else
// are rejected before reaching business logic.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is owned either by a registered account (UserID set) or by an
// anonymous visitor (VisitorID set). Exactly one of the two is populated.
type Conversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	VisitorID string    `gorm:"type:varchar(64);default:'';index" json:"visitor_id,omitempty"`
	Title     string    `gorm:"type:varchar(200);default:''" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Message is immutable once created. Ordering by CreatedAt (then ID for
// same-timestamp inserts) defines the prompt history.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);not null;index" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role" validate:"oneof=user assistant system"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
