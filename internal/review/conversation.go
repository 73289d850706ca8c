package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/codecoach/internal/providers"
)

// ConversationOptions tunes Continue.
type ConversationOptions struct {
	MaxTokens   int
	Temperature float64
}

// Continue asks the conversational coach a follow-up question about one
// item. The model sees the numbered source, then the item as its own
// earlier reply, then every prior user question in order, then message.
func Continue(ctx context.Context, cl providers.Classifier, source, item string, previous []string, message string, opts ConversationOptions) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	msgs := make([]providers.Message, 0, len(previous)+3)
	msgs = append(msgs,
		providers.UserMessage(NumberLines(source)),
		providers.AssistantMessage(item),
	)
	for _, p := range previous {
		msgs = append(msgs, providers.UserMessage(p))
	}
	msgs = append(msgs, providers.UserMessage(message))

	resp, err := cl.Complete(ctx, providers.Request{
		System:      conversationalCoach,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("continuing conversation: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
