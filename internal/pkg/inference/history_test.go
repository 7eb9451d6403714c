package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solacehq/solace/app/models"
)

// lenCounter prices each message at its byte length so the tests can reason
// about budgets without a real tokenizer.
func lenCounter(text string) int { return len(text) }

func TestWindowMessagesKeepsAllWithinBudget(t *testing.T) {
	msgs := []ChatMessage{
		{Role: models.RoleUser, Content: "aaaa"},
		{Role: models.RoleAssistant, Content: "bbbb"},
		{Role: models.RoleUser, Content: "cccc"},
	}

	got := WindowMessages(msgs, lenCounter, 100)
	assert.Equal(t, msgs, got)
}

func TestWindowMessagesDropsOldestFirst(t *testing.T) {
	msgs := []ChatMessage{
		{Role: models.RoleUser, Content: "oldest....."}, // 11
		{Role: models.RoleAssistant, Content: "middle"},  // 6
		{Role: models.RoleUser, Content: "newest"},       // 6
	}

	got := WindowMessages(msgs, lenCounter, 12)
	assert.Equal(t, []ChatMessage{
		{Role: models.RoleAssistant, Content: "middle"},
		{Role: models.RoleUser, Content: "newest"},
	}, got)
}

func TestWindowMessagesAlwaysKeepsSystemMessage(t *testing.T) {
	msgs := []ChatMessage{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "aaaaaaaa"},
		{Role: models.RoleUser, Content: "newest"},
	}

	got := WindowMessages(msgs, lenCounter, 10)
	assert.Equal(t, models.RoleSystem, got[0].Role)
	assert.Equal(t, []ChatMessage{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "newest"},
	}, got)
}

func TestWindowMessagesKeepsNewestEvenOverBudget(t *testing.T) {
	msgs := []ChatMessage{
		{Role: models.RoleUser, Content: "this single message blows the whole budget"},
	}

	got := WindowMessages(msgs, lenCounter, 5)
	assert.Len(t, got, 1)
	assert.Equal(t, msgs[0], got[0])
}

func TestWindowMessagesZeroBudgetPassesThrough(t *testing.T) {
	msgs := []ChatMessage{{Role: models.RoleUser, Content: "hi"}}
	assert.Equal(t, msgs, WindowMessages(msgs, lenCounter, 0))
}

func TestNewTiktokenCounterNeverZero(t *testing.T) {
	count := NewTiktokenCounter("gpt-4o-mini")
	assert.Greater(t, count("hello world"), 0)
}
