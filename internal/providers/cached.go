package providers

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dshills/codecoach/internal/cache"
)

// Cached wraps a Classifier with the on-disk response cache. Only
// single-turn requests are cached; conversations always reach the model.
type Cached struct {
	next   Classifier
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCached returns next unchanged when c is nil or disabled.
func NewCached(next Classifier, c *cache.Cache, logger *slog.Logger) Classifier {
	if c == nil || !c.Enabled() {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: c, logger: logger}
}

func (c *Cached) Name() string  { return c.next.Name() }
func (c *Cached) Model() string { return c.next.Model() }

func (c *Cached) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) != 1 {
		return c.next.Complete(ctx, req)
	}
	key := requestKey(c.next, req)
	if entry, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "cache hit", "provider", c.next.Name(), "model", c.next.Model())
		return Response{Content: entry.Response}, nil
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	if err := c.cache.Put(key, resp.Content, resp.TokensUsed); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "error", err)
	}
	return resp, nil
}

func requestKey(cl Classifier, req Request) string {
	schema := ""
	if req.Schema != nil {
		schema = req.Schema.Name
	}
	return cache.BuildKey(
		cl.Name(),
		cl.Model(),
		req.System,
		schema,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(req.Temperature, 'f', -1, 64),
		req.Messages[0].Content,
	)
}
