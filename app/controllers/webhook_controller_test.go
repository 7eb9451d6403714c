package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/internal/pkg/database"
	"github.com/solacehq/solace/internal/pkg/ledger"
)

const testWebhookSecret = "whsec_controller_test"

func newWebhookTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.TokenLedger{},
		&models.CheckoutIntent{},
		&models.PaymentWebhookEvent{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	database.SetDB(db)

	app := fiber.New()
	app.Post("/webhooks/payment", HandlePaymentWebhook)
	return app, db
}

func stripeSignature(payload []byte, secret string) string {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhookRejectsBadSignatureWithoutPersisting(t *testing.T) {
	app, db := newWebhookTestApp(t)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	assert.Equal(t, fiber.StatusUnauthorized, postWebhook(t, app, payload, ""))
	assert.Equal(t, fiber.StatusUnauthorized, postWebhook(t, app, payload, "t=1,v1=deadbeef"))
	assert.Equal(t, fiber.StatusUnauthorized,
		postWebhook(t, app, payload, stripeSignature(payload, "whsec_wrong")))

	var count int64
	require.NoError(t, db.Model(&models.PaymentWebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhookCreditsOnceAcrossRedeliveries(t *testing.T) {
	app, db := newWebhookTestApp(t)
	user := &models.User{
		Name:     "Webhook Person",
		Email:    "webhook@example.test",
		Password: "irrelevant",
		Plan:     models.PLAN_MEMBER,
		Status:   models.STATUS_ACTIVE,
	}
	require.NoError(t, db.Create(user).Error)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_once",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "metadata": {"account_id": "%d", "grant_units": "2000"}}}
	}`, user.ID))

	for i := 0; i < 3; i++ {
		status := postWebhook(t, app, payload, stripeSignature(payload, testWebhookSecret))
		assert.Equal(t, fiber.StatusOK, status)
	}

	balance, err := ledger.NewServiceFromDB(db).Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), balance.Total)

	var events int64
	require.NoError(t, db.Model(&models.PaymentWebhookEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	app, db := newWebhookTestApp(t)
	payload := []byte(`{"id":"evt_other","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)

	status := postWebhook(t, app, payload, stripeSignature(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusOK, status)

	var event models.PaymentWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_other").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)

	var ledgers int64
	require.NoError(t, db.Model(&models.TokenLedger{}).Count(&ledgers).Error)
	assert.Equal(t, int64(0), ledgers)
}

func TestWebhookBadMetadataIsNotRetried(t *testing.T) {
	app, db := newWebhookTestApp(t)
	payload := []byte(`{
		"id": "evt_bad",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_bad", "metadata": {"grant_units": "2000"}}}
	}`)

	status := postWebhook(t, app, payload, stripeSignature(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusBadRequest, status)

	var event models.PaymentWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_bad").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)
	assert.NotEmpty(t, event.ProcessingError)
}

func TestWebhookRejectsUnparseablePayload(t *testing.T) {
	app, _ := newWebhookTestApp(t)
	payload := []byte("this is not json")

	status := postWebhook(t, app, payload, stripeSignature(payload, testWebhookSecret))
	assert.Equal(t, fiber.StatusBadRequest, status)
}
