package inference

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable is surfaced when a provider call fails. The router
// never falls back to the other provider within the same request.
var ErrUpstreamUnavailable = errors.New("inference upstream unavailable")

// ChatMessage is the provider-neutral prompt message shape.
type ChatMessage struct {
	Role    string
	Content string
}

// PrimaryResult carries the reply plus the vendor-reported usage units that
// the ledger converts into billing units.
type PrimaryResult struct {
	Content    string
	UsageUnits int64
}

// PrimaryProvider is the metered, usage-reporting backend.
type PrimaryProvider interface {
	Generate(ctx context.Context, messages []ChatMessage) (*PrimaryResult, error)
}

// FallbackProvider is the unmetered backend. It reports no usage and is
// called without any per-account credential.
type FallbackProvider interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}
