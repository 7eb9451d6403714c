package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/env"
	"github.com/solacehq/solace/internal/pkg/payments"
)

// HandlePaymentWebhook receives signed payment events. The signature is
// verified before any of the payload is parsed; nothing is persisted for an
// invalid signature. Failures after verification return 5xx so the provider
// redelivers.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !payments.VerifyWebhookSignature(rawBody, signature, secret, payments.DefaultSignatureTolerance) {
		fiberlog.Warnf("Rejected payment webhook with bad signature from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	eventID, eventType, err := payments.ParseEventEnvelope(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := payments.NewServiceFromDB(database.GetDB(), checkoutClient)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, payments.WebhookEventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		fiberlog.Errorf("Webhook persistence failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	if eventType != payments.EventTypeCheckoutCompleted {
		if created {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	event, err := payments.ParseCheckoutCompletedEvent(rawBody)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	applied, err := svc.ApplyCheckoutCompleted(ctx, stored.ID, event)
	if err != nil {
		fiberlog.Errorf("Applying payment event %s failed: %v", eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "credit_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": !applied})
}
