package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/payments"
	"github.com/solacehq/solace/internal/pkg/usercontext"
)

var checkoutClient payments.ProviderClient

// InitializeCheckoutController wires the payment provider client. Called
// once during route installation.
func InitializeCheckoutController() {
	checkoutClient = payments.NewStripeClientFromEnv()
}

// SetCheckoutClientForTesting swaps the provider client. Tests only.
func SetCheckoutClientForTesting(client payments.ProviderClient) {
	checkoutClient = client
}

type checkoutRequest struct {
	GrantUnits int64 `json:"grant_units" validate:"required,gt=0"`
}

// HandleCreateCheckoutSession opens a hosted checkout session for a catalog
// grant amount.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req checkoutRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	svc := payments.NewServiceFromDB(database.GetDB(), checkoutClient)
	handle, err := svc.CreateCheckoutSession(ctx, userCtx.UserID, userCtx.Email, req.GrantUnits)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidGrant) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_grant"})
		}
		fiberlog.Errorf("Checkout session creation failed for account %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(handle)
}
