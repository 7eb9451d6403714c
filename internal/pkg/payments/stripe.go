package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solacehq/solace/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// ProviderClient is the payment-provider surface the checkout service uses.
// Satisfied by StripeClient and by test doubles.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, email string, accountID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error)
}

// StripeClient talks to the hosted-checkout API with form-encoded requests.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string
	SuccessURL string
	CancelURL  string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	successURL := strings.TrimSpace(env.GetEnv("STRIPE_SUCCESS_URL", ""))
	if successURL == "" && base != "" {
		successURL = base + "/tokens/success"
	}
	cancelURL := strings.TrimSpace(env.GetEnv("STRIPE_CANCEL_URL", ""))
	if cancelURL == "" && base != "" {
		cancelURL = base + "/tokens"
	}

	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type stripeCustomerResponse struct {
	ID string `json:"id"`
}

type stripeSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email string, accountID uint) (string, error) {
	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	form.Set("metadata[account_id]", strconv.FormatUint(uint64(accountID), 10))

	var out stripeCustomerResponse
	if err := c.postForm(ctx, "/customers", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("payment provider returned no customer id")
	}
	return out.ID, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer", in.CustomerID)
	form.Set("line_items[0][price]", in.PriceRef)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.SuccessURL)
	form.Set("cancel_url", c.CancelURL)
	form.Set("metadata[account_id]", strconv.FormatUint(uint64(in.AccountID), 10))
	form.Set("metadata[grant_units]", strconv.FormatInt(in.GrantUnits, 10))

	var out stripeSessionResponse
	if err := c.postForm(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("payment provider returned no session id")
	}
	return &CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.SecretKey, "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payment provider response read failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr stripeErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("payment provider error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("payment provider error (status %d)", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
