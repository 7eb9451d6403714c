package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signPayload(payload []byte, secret string, ts time.Time) string {
	timestamp := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"

	header := signPayload(payload, secret, time.Now())
	assert.True(t, VerifyWebhookSignature(payload, header, secret, DefaultSignatureTolerance))

	// Tampered payload.
	assert.False(t, VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header, secret, DefaultSignatureTolerance))

	// Wrong secret.
	assert.False(t, VerifyWebhookSignature(payload, header, "whsec_other", DefaultSignatureTolerance))

	// Missing header or secret.
	assert.False(t, VerifyWebhookSignature(payload, "", secret, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, header, "", DefaultSignatureTolerance))

	// Garbage header.
	assert.False(t, VerifyWebhookSignature(payload, "not-a-signature", secret, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, "t=abc,v1=zz", secret, DefaultSignatureTolerance))
}

func TestVerifyWebhookSignatureTimestampTolerance(t *testing.T) {
	payload := []byte(`{"id":"evt_old"}`)
	secret := "whsec_test"

	stale := signPayload(payload, secret, time.Now().Add(-10*time.Minute))
	assert.False(t, VerifyWebhookSignature(payload, stale, secret, DefaultSignatureTolerance))

	future := signPayload(payload, secret, time.Now().Add(10*time.Minute))
	assert.False(t, VerifyWebhookSignature(payload, future, secret, DefaultSignatureTolerance))

	// Zero tolerance disables the age check entirely.
	assert.True(t, VerifyWebhookSignature(payload, stale, secret, 0))
}

func TestVerifyWebhookSignatureSecretRotation(t *testing.T) {
	payload := []byte(`{"id":"evt_rot"}`)
	now := time.Now()
	timestamp := fmt.Sprintf("%d", now.Unix())

	sign := func(secret string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(timestamp + "."))
		mac.Write(payload)
		return hex.EncodeToString(mac.Sum(nil))
	}

	// During rotation the provider sends a v1 entry per active secret; a
	// match on any of them passes.
	header := fmt.Sprintf("t=%s,v1=%s,v1=%s", timestamp, sign("whsec_old"), sign("whsec_new"))
	assert.True(t, VerifyWebhookSignature(payload, header, "whsec_new", DefaultSignatureTolerance))
	assert.True(t, VerifyWebhookSignature(payload, header, "whsec_old", DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, header, "whsec_gone", DefaultSignatureTolerance))
}
