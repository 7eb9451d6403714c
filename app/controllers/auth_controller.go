package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/app/repository"
	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/ledger"
	"github.com/solacehq/solace/internal/pkg/session"
	"github.com/solacehq/solace/internal/pkg/usercontext"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister creates an account and provisions its zero ledger row so
// later debits never depend on a first grant having created it.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := userRepo.GetByEmail(req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "account_lookup_failed"})
	}

	if err := userRepo.Create(user); err != nil {
		fiberlog.Errorf("Account creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "account_create_failed"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ledger.NewServiceFromDB(database.GetDB()).Provision(ctx, user.ID); err != nil {
		fiberlog.Errorf("Ledger provisioning failed for account %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "ledger_provision_failed"})
	}

	if sess, err := session.GetSessionStore().Get(c); err == nil {
		sess.Set(usercontext.KeyUserID, user.ID)
		_ = sess.Save()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"plan":  user.Plan,
	})
}
