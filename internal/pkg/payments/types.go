package payments

import "errors"

// ErrInvalidGrant is returned when a requested grant amount is not in the
// catalog. No call to the payment provider is made in that case.
var ErrInvalidGrant = errors.New("grant units not in catalog")

// GrantCatalog is the closed set of purchasable grant amounts in billing
// units. Each entry maps to an external price reference via configuration.
var GrantCatalog = []int64{2000, 5000, 10000}

// IsCatalogGrant reports whether the grant amount is purchasable.
func IsCatalogGrant(units int64) bool {
	for _, allowed := range GrantCatalog {
		if units == allowed {
			return true
		}
	}
	return false
}

// CheckoutSessionInput is what the provider client needs to open a hosted
// checkout session. AccountID and GrantUnits travel as session metadata so
// the webhook processor can correlate the completed payment.
type CheckoutSessionInput struct {
	CustomerID string
	PriceRef   string
	AccountID  uint
	GrantUnits int64
}

// CheckoutSession is the provider's view of an opened session.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionHandle is returned to the caller who initiates a checkout.
type SessionHandle struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutCompletedEvent is the extracted payload of a completed checkout.
type CheckoutCompletedEvent struct {
	SessionID  string
	AccountID  uint
	GrantUnits int64
}
