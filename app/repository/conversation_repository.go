package repository

import (
	"github.com/solacehq/solace/app/models"
	"gorm.io/gorm"
)

// conversationRepository implements the ConversationRepository interface
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository instance
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) GetConversation(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) CreateConversation(conv *models.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *conversationRepository) ListByOwner(userID uint, visitorID string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var convs []models.Conversation
	q := r.db.Order("updated_at DESC").Limit(limit)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	} else {
		q = q.Where("visitor_id = ?", visitorID)
	}
	err := q.Find(&convs).Error
	return convs, err
}

// ListMessages returns the full ordered history of a conversation.
func (r *conversationRepository) ListMessages(conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *conversationRepository) AppendMessage(msg *models.Message) error {
	return r.db.Create(msg).Error
}
