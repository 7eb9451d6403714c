package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solacehq/solace/internal/pkg/env"
)

const defaultFallbackAPIBaseURL = "https://inference.solace.chat/community"

// FallbackClient calls the community inference gateway that serves the
// unmetered tier. The gateway reports no usage and requests carry no
// per-account credential.
type FallbackClient struct {
	APIBaseURL string
	Model      string

	HTTPClient *http.Client
}

func NewFallbackClientFromEnv() *FallbackClient {
	return &FallbackClient{
		APIBaseURL: strings.TrimRight(env.GetEnv("FALLBACK_API_BASE_URL", defaultFallbackAPIBaseURL), "/"),
		Model:      env.GetEnv("FALLBACK_MODEL", "community-small"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type fallbackRequest struct {
	Model    string            `json:"model"`
	Messages []fallbackMessage `json:"messages"`
}

type fallbackMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fallbackResponse struct {
	Content string `json:"content"`
}

func (c *FallbackClient) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := fallbackRequest{Model: c.Model}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, fallbackMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gateway returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var out fallbackResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: invalid gateway response: %v", ErrUpstreamUnavailable, err)
	}
	return out.Content, nil
}
