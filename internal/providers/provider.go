package providers

import (
	"context"
	"fmt"
	"strings"
)

// Message is one conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single classification or conversation call.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema // nil for free-form replies
	MaxTokens   int
	Temperature float64
}

// Response contains the raw text returned by the model.
type Response struct {
	Content    string
	TokensUsed int
}

// Classifier is the capability the review pipeline depends on.
type Classifier interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
	Model() string
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// New creates a classifier by provider name.
func New(provider, model string) (Classifier, error) {
	switch strings.ToLower(provider) {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "gemini", "google":
		return NewGemini(model)
	case "ollama", "lmstudio":
		return NewOllama(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// ParseModelSpec splits "provider:model".
func ParseModelSpec(spec string) (string, string, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model spec %q: expected provider:model", spec)
	}
	return parts[0], parts[1], nil
}

func maxTokensOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// systemWithSchema appends schema instructions for providers that cannot
// enforce a response format themselves.
func systemWithSchema(req Request) string {
	if req.Schema == nil {
		return req.System
	}
	return req.System + "\n\n" + req.Schema.Instructions()
}
