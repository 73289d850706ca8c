package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/codecoach/internal/providers"
)

// GroupingOptions tunes FindSimilar.
type GroupingOptions struct {
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// FindSimilar asks the classifier which items describe the same root
// problem on identical lines. It returns the partition as data; applying it
// is Merge's job. An empty pool returns no groups without a request.
func FindSimilar(ctx context.Context, cl providers.Classifier, items []Item, opts GroupingOptions) ([]MergeGroup, error) {
	if len(items) == 0 {
		return nil, nil
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resp, err := cl.Complete(ctx, providers.Request{
		System:      similarityPrompt,
		Messages:    []providers.Message{providers.UserMessage(Transcript(items))},
		Schema:      mergeSchema,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	var md mergeDecisions
	if err := json.NewDecoder(strings.NewReader(stripFences(resp.Content))).Decode(&md); err != nil {
		return nil, fmt.Errorf("invalid merge decisions: %w", err)
	}

	groups := make([]MergeGroup, 0, len(md.MergeGroups))
	for _, g := range md.MergeGroups {
		if len(g) < 2 {
			logger.WarnContext(ctx, "dropping merge group with fewer than two titles", "titles", g)
			continue
		}
		groups = append(groups, MergeGroup(g))
	}
	return groups, nil
}
