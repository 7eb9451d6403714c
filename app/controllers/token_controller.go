package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/ledger"
	"github.com/solacehq/solace/internal/pkg/usercontext"
)

// HandleGetTokens returns the token balance for an account. Accounts without
// a ledger row read as {0,0}. Callers may only read their own balance.
func HandleGetTokens(c *fiber.Ctx) error {
	accountID, err := strconv.ParseUint(c.Params("accountId"), 10, 64)
	if err != nil || accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_account_id"})
	}

	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if userCtx.UserID != uint(accountID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	balance, err := ledger.NewServiceFromDB(database.GetDB()).Get(ctx, uint(accountID))
	if err != nil {
		fiberlog.Errorf("Ledger lookup failed for account %d: %v", accountID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "ledger_lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(balance)
}
