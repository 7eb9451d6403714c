package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/app/repository"
	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/env"
	"github.com/solacehq/solace/internal/pkg/inference"
	"github.com/solacehq/solace/internal/pkg/ledger"
	"github.com/solacehq/solace/internal/pkg/middleware"
	"github.com/solacehq/solace/internal/pkg/security"
	"github.com/solacehq/solace/internal/pkg/usercontext"
)

const visitorTokenTTL = 180 * 24 * time.Hour

var chatRouter *inference.Router

// InitializeChatController wires the inference router with the configured
// providers. Called once during route installation.
func InitializeChatController() {
	primary, err := inference.NewOpenAIProviderFromEnv()
	if err != nil {
		fiberlog.Errorf("Primary inference provider not configured: %v", err)
	}
	chatRouter = inference.NewRouter(
		primary,
		inference.NewFallbackClientFromEnv(),
		ledger.NewServiceFromDB(database.GetDB()),
		repository.GetGlobalFactory().GetConversationRepository(),
	)
}

// SetChatRouterForTesting swaps the router. Tests only.
func SetChatRouterForTesting(r *inference.Router) {
	chatRouter = r
}

type chatRequest struct {
	ConversationID string `json:"conversation_id" validate:"omitempty,uuid4"`
	Message        string `json:"message" validate:"required,min=1,max=4000"`
}

// HandleChat runs one chat turn for the current account or visitor.
func HandleChat(c *fiber.Ctx) error {
	var req chatRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	userCtx := usercontext.GetUserContext(c)

	var account *models.User
	if userCtx.IsLoggedIn {
		var err error
		account, err = repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
		if err != nil {
			fiberlog.Errorf("Account lookup failed for %d: %v", userCtx.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "account_lookup_failed"})
		}
	}

	visitorID := userCtx.VisitorID
	if account == nil && visitorID == "" {
		visitorID = uuid.NewString()
		if token, err := security.GenerateVisitorToken(visitorID, visitorTokenTTL, env.GetEnv("APP_SECRET", "")); err == nil {
			c.Cookie(&fiber.Cookie{
				Name:     middleware.VisitorCookieName,
				Value:    token,
				HTTPOnly: true,
				Expires:  time.Now().Add(visitorTokenTTL),
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	result, err := chatRouter.Complete(ctx, account, visitorID, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrQuotaExceeded):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "quota_exceeded"})
		case errors.Is(err, inference.ErrUpstreamUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_unavailable"})
		case errors.Is(err, inference.ErrConversationNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation_not_found"})
		default:
			fiberlog.Errorf("Chat turn failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "chat_failed"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conversation_id": result.Conversation.ID,
		"reply": fiber.Map{
			"role":       result.Reply.Role,
			"content":    result.Reply.Content,
			"created_at": result.Reply.CreatedAt,
		},
	})
}

// HandleGetConversation returns the ordered history of a conversation owned
// by the caller.
func HandleGetConversation(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	if _, err := uuid.Parse(conversationID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_conversation_id"})
	}

	userCtx := usercontext.GetUserContext(c)
	convRepo := repository.GetGlobalFactory().GetConversationRepository()

	conv, err := convRepo.GetConversation(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "conversation_lookup_failed"})
	}

	owned := false
	if userCtx.IsLoggedIn {
		owned = conv.UserID != nil && *conv.UserID == userCtx.UserID
	} else {
		owned = userCtx.VisitorID != "" && conv.VisitorID == userCtx.VisitorID
	}
	if !owned {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "conversation_not_found"})
	}

	messages, err := convRepo.ListMessages(conv.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "history_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conversation": conv,
		"messages":     messages,
	})
}
