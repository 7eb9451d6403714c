package inference

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/solacehq/solace/app/models"
)

// DefaultPromptTokenBudget bounds how much history is sent upstream per turn.
const DefaultPromptTokenBudget = 6000

// TokenCounter estimates the token footprint of a message text.
type TokenCounter func(text string) int

// NewTiktokenCounter builds a counter for the given model, falling back to
// the cl100k_base encoding and then to a rough bytes/4 estimate.
func NewTiktokenCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return func(text string) int { return len(text)/4 + 1 }
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// WindowMessages trims history to the token budget. The leading system
// message is always kept; after that the newest messages win.
func WindowMessages(messages []ChatMessage, count TokenCounter, budget int) []ChatMessage {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}

	var system *ChatMessage
	rest := messages
	if messages[0].Role == models.RoleSystem {
		system = &messages[0]
		rest = messages[1:]
		budget -= count(system.Content)
	}

	kept := make([]ChatMessage, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		cost := count(rest[i].Content)
		if cost > budget && len(kept) > 0 {
			break
		}
		kept = append(kept, rest[i])
		budget -= cost
		if budget <= 0 {
			break
		}
	}

	// kept is newest-first; reverse into chronological order.
	out := make([]ChatMessage, 0, len(kept)+1)
	if system != nil {
		out = append(out, *system)
	}
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, kept[i])
	}
	return out
}
