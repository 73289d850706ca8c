package providers

import (
	"context"
	"sync"
)

// countingClassifier records calls and returns a canned reply.
type countingClassifier struct {
	mu    sync.Mutex
	calls int
	reply string
}

func (c *countingClassifier) Name() string  { return "fake" }
func (c *countingClassifier) Model() string { return "fake-1" }

func (c *countingClassifier) Complete(_ context.Context, _ Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return Response{Content: c.reply, TokensUsed: 7}, nil
}
