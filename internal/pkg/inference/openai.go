package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/solacehq/solace/app/models"
	"github.com/solacehq/solace/internal/pkg/env"
)

const defaultPrimaryTimeout = 60 * time.Second

// OpenAIProvider is the primary, usage-reporting inference backend.
type OpenAIProvider struct {
	llm     *openai.LLM
	model   string
	timeout time.Duration
}

func NewOpenAIProviderFromEnv() (*OpenAIProvider, error) {
	model := env.GetEnv("OPENAI_MODEL", "gpt-4o-mini")
	opts := []openai.Option{
		openai.WithToken(env.GetEnv("OPENAI_API_KEY", "")),
		openai.WithModel(model),
	}
	if base := env.GetEnv("OPENAI_API_BASE_URL", ""); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client setup failed: %w", err)
	}
	return &OpenAIProvider{llm: llm, model: model, timeout: defaultPrimaryTimeout}, nil
}

// Model returns the configured model name, used for prompt-window sizing.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []ChatMessage) (*PrimaryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	resp, err := p.llm.GenerateContent(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return &PrimaryResult{}, nil
	}

	choice := resp.Choices[0]
	return &PrimaryResult{
		Content:    choice.Content,
		UsageUnits: usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

func usageFromGenerationInfo(info map[string]any) int64 {
	if info == nil {
		return 0
	}
	switch n := info["TotalTokens"].(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
