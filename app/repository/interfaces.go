package repository

import (
	"github.com/solacehq/solace/app/models"
)

// UserRepository defines the interface for account-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Deactivate(id uint) error
	SetPaymentCustomerID(id uint, customerID string) error
}

// ConversationRepository defines the interface for conversation and message
// persistence. Messages are append-only.
type ConversationRepository interface {
	GetConversation(id string) (*models.Conversation, error)
	CreateConversation(conv *models.Conversation) error
	ListByOwner(userID uint, visitorID string, limit int) ([]models.Conversation, error)
	ListMessages(conversationID string) ([]models.Message, error)
	AppendMessage(msg *models.Message) error
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Conversation ConversationRepository
}
