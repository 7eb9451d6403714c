package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/internal/pkg/env"
	"github.com/solacehq/solace/internal/pkg/ledger"
)

// EventTypeCheckoutCompleted is the only event type that mutates the ledger.
// Everything else is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// Service opens checkout sessions and applies verified payment events.
type Service struct {
	repo   Repository
	client ProviderClient
}

// NewService creates a payments service from injected collaborators. The
// provider client is injected so tests can substitute a double.
func NewService(repo Repository, client ProviderClient) *Service {
	return &Service{repo: repo, client: client}
}

// NewServiceFromDB creates a payments service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, client ProviderClient) *Service {
	return NewService(NewRepository(db), client)
}

// PriceRefForGrant maps a catalog grant amount to the externally configured
// price reference.
func PriceRefForGrant(units int64) string {
	return env.GetEnv(fmt.Sprintf("STRIPE_PRICE_REF_%d", units), "")
}

// CreateCheckoutSession validates the grant against the catalog, resolves or
// creates the 1:1 payment customer for the account, and opens a hosted
// checkout session carrying {accountId, grantUnits} as metadata.
func (s *Service) CreateCheckoutSession(ctx context.Context, accountID uint, email string, grantUnits int64) (*SessionHandle, error) {
	if !IsCatalogGrant(grantUnits) {
		return nil, ErrInvalidGrant
	}

	user, err := s.repo.GetUserByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	customerID := strings.TrimSpace(user.PaymentCustomerID)
	if customerID == "" {
		customerID, err = s.client.CreateCustomer(ctx, email, accountID)
		if err != nil {
			return nil, fmt.Errorf("customer creation failed: %w", err)
		}
		if err := s.repo.SetPaymentCustomerID(accountID, customerID); err != nil {
			return nil, fmt.Errorf("caching customer id failed: %w", err)
		}
	}

	session, err := s.client.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customerID,
		PriceRef:   PriceRefForGrant(grantUnits),
		AccountID:  accountID,
		GrantUnits: grantUnits,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout session creation failed: %w", err)
	}

	intent := &models.CheckoutIntent{
		AccountID:         accountID,
		GrantUnits:        grantUnits,
		ExternalSessionID: session.ID,
		Status:            models.CheckoutStatusOpen,
	}
	if err := s.repo.CreateCheckoutIntent(intent); err != nil {
		return nil, fmt.Errorf("recording checkout intent failed: %w", err)
	}

	return &SessionHandle{SessionID: session.ID, URL: session.URL}, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// bool is false when the event id was seen before.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PaymentWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ApplyCheckoutCompleted credits the ledger from a completed checkout event
// and consumes the matching intent. The claim of the event row and the
// credit happen in one transaction, so a replayed event id credits exactly
// once and a failed credit stays unclaimed for redelivery. Returns whether
// this call applied the grant.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, eventRowID uint, event *CheckoutCompletedEvent) (bool, error) {
	applied, err := s.repo.ApplyEventOnce(eventRowID, func(tx *gorm.DB) error {
		if err := ledger.NewServiceFromDB(tx).Credit(ctx, event.AccountID, event.GrantUnits); err != nil {
			return err
		}
		return completeCheckoutIntent(tx, event.SessionID)
	})
	if err != nil {
		if recordErr := s.repo.RecordProcessingError(eventRowID, err.Error()); recordErr != nil {
			return false, fmt.Errorf("%w (error not recorded: %v)", err, recordErr)
		}
		return false, err
	}
	return applied, nil
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEventEnvelope extracts the provider event id and type. Called only
// after signature verification.
func ParseEventEnvelope(payload []byte) (eventID, eventType string, err error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", "", fmt.Errorf("invalid event payload: %w", err)
	}
	return envelope.ID, envelope.Type, nil
}

// ParseCheckoutCompletedEvent extracts {accountId, grantUnits} from session
// metadata of a completed-checkout event.
func ParseCheckoutCompletedEvent(payload []byte) (*CheckoutCompletedEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	object := envelope.Data.Object
	accountID, err := strconv.ParseUint(object.Metadata["account_id"], 10, 64)
	if err != nil || accountID == 0 {
		return nil, errors.New("event metadata carries no valid account_id")
	}
	grantUnits, err := strconv.ParseInt(object.Metadata["grant_units"], 10, 64)
	if err != nil || grantUnits <= 0 {
		return nil, errors.New("event metadata carries no valid grant_units")
	}

	return &CheckoutCompletedEvent{
		SessionID:  object.ID,
		AccountID:  uint(accountID),
		GrantUnits: grantUnits,
	}, nil
}
