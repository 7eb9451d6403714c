package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/internal/pkg/ledger"
	"github.com/solacehq/solace/internal/pkg/plan"
)

// systemInstruction is prepended on the metered path when the stored history
// does not already contain a system message.
const systemInstruction = "You are Solace, a warm and attentive companion. " +
	"Listen closely, respond with empathy, and keep replies concise. " +
	"You are not a medical professional and do not give clinical advice."

// safeFallbackReply replaces an empty provider response so the end user
// never sees a blank or failed turn for a reply the provider accepted.
const safeFallbackReply = "I'm here with you. Could you tell me a little more about what's on your mind?"

// ErrConversationNotFound covers both unknown ids and conversations owned by
// someone else; callers cannot distinguish the two.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the persistence surface the router needs. Implemented
// by the repository layer.
type ConversationStore interface {
	GetConversation(id string) (*models.Conversation, error)
	CreateConversation(conv *models.Conversation) error
	ListMessages(conversationID string) ([]models.Message, error)
	AppendMessage(msg *models.Message) error
}

// Router runs one chat turn: resolve tier, select provider, call it,
// account usage, persist the reply.
type Router struct {
	primary  PrimaryProvider
	fallback FallbackProvider
	ledger   *ledger.Service
	store    ConversationStore
	counter  TokenCounter
	budget   int
}

// NewRouter wires a router from injected providers so tests can substitute
// doubles for the upstream backends.
func NewRouter(primary PrimaryProvider, fallback FallbackProvider, ledgerSvc *ledger.Service, store ConversationStore) *Router {
	return &Router{
		primary:  primary,
		fallback: fallback,
		ledger:   ledgerSvc,
		store:    store,
		counter:  NewTiktokenCounter("gpt-4o-mini"),
		budget:   DefaultPromptTokenBudget,
	}
}

// WithTokenCounter overrides the prompt token counter.
func (r *Router) WithTokenCounter(counter TokenCounter, budget int) *Router {
	r.counter = counter
	r.budget = budget
	return r
}

// TurnResult is the outcome of one completed chat turn.
type TurnResult struct {
	Conversation *models.Conversation
	Reply        *models.Message
}

// Complete runs a chat turn for the given account (nil for anonymous
// visitors). An empty conversationID starts a new conversation.
func (r *Router) Complete(ctx context.Context, account *models.User, visitorID, conversationID, content string) (*TurnResult, error) {
	conv, history, err := r.resolveConversation(account, visitorID, conversationID, content)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        content,
	}
	if err := r.store.AppendMessage(userMsg); err != nil {
		return nil, fmt.Errorf("persisting user message failed: %w", err)
	}

	prompt := make([]ChatMessage, 0, len(history)+2)
	for _, m := range history {
		prompt = append(prompt, ChatMessage{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, ChatMessage{Role: models.RoleUser, Content: content})

	var reply string
	switch plan.Resolve(account) {
	case plan.TierMetered:
		reply, err = r.completeMetered(ctx, account.ID, prompt)
	default:
		reply, err = r.completeUnmetered(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(reply) == "" {
		reply = safeFallbackReply
	}
	assistantMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
	}
	if err := r.store.AppendMessage(assistantMsg); err != nil {
		return nil, fmt.Errorf("persisting reply failed: %w", err)
	}

	return &TurnResult{Conversation: conv, Reply: assistantMsg}, nil
}

func (r *Router) completeMetered(ctx context.Context, accountID uint, prompt []ChatMessage) (string, error) {
	if r.primary == nil {
		// Primary provider misconfigured at startup.
		return "", ErrUpstreamUnavailable
	}
	if !hasSystemMessage(prompt) {
		prompt = append([]ChatMessage{{Role: models.RoleSystem, Content: systemInstruction}}, prompt...)
	}
	prompt = WindowMessages(prompt, r.counter, r.budget)

	result, err := r.primary.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	ok, err := r.ledger.CanDebit(ctx, accountID, result.UsageUnits)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ledger.ErrQuotaExceeded
	}
	if err := r.ledger.Debit(ctx, accountID, result.UsageUnits); err != nil {
		return "", err
	}
	return result.Content, nil
}

func (r *Router) completeUnmetered(ctx context.Context, prompt []ChatMessage) (string, error) {
	prompt = WindowMessages(prompt, r.counter, r.budget)
	return r.fallback.Generate(ctx, prompt)
}

func (r *Router) resolveConversation(account *models.User, visitorID, conversationID, content string) (*models.Conversation, []models.Message, error) {
	if conversationID == "" {
		conv := &models.Conversation{
			ID:    uuid.NewString(),
			Title: deriveTitle(content),
		}
		if account != nil && account.ID != 0 {
			conv.UserID = &account.ID
		} else {
			conv.VisitorID = visitorID
		}
		if err := r.store.CreateConversation(conv); err != nil {
			return nil, nil, fmt.Errorf("creating conversation failed: %w", err)
		}
		return conv, nil, nil
	}

	conv, err := r.store.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, fmt.Errorf("loading conversation failed: %w", err)
	}
	if !ownsConversation(conv, account, visitorID) {
		return nil, nil, ErrConversationNotFound
	}

	history, err := r.store.ListMessages(conv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading history failed: %w", err)
	}
	return conv, history, nil
}

func ownsConversation(conv *models.Conversation, account *models.User, visitorID string) bool {
	if account != nil && account.ID != 0 {
		return conv.UserID != nil && *conv.UserID == account.ID
	}
	return visitorID != "" && conv.VisitorID == visitorID
}

func hasSystemMessage(messages []ChatMessage) bool {
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			return true
		}
	}
	return false
}

func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}
