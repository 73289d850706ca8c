package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codecoach/internal/providers"
)

var (
	feedbackSchema = providers.SchemaFor[feedbackList]("feedback_list")
	mergeSchema    = providers.SchemaFor[mergeDecisions]("merge_decisions")
)

// AnalyzeOptions tunes the fan-out.
type AnalyzeOptions struct {
	Concurrency int // parallel category requests; <= 0 means all at once
	MaxTokens   int
	Temperature float64
	Profiles    Profiles // nil means DefaultProfiles
	Logger      *slog.Logger

	// OnCategory, when set, is called once per category as it settles.
	OnCategory func(CategoryOutcome)
}

// Analyze sends one classification request per category and pools the
// returned items. A failing category is logged and left out; it never
// cancels its siblings. The pool is sorted by severity, highest first,
// with ties kept in completion order. Only ctx cancellation is an error.
func Analyze(ctx context.Context, cl providers.Classifier, source string, categories []Category, opts AnalyzeOptions) (Batch, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profiles := opts.Profiles
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	numbered := NumberLines(source)

	var (
		mu    sync.Mutex
		batch = Batch{Outcomes: make([]CategoryOutcome, len(categories))}
	)

	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, cat := range categories {
		g.Go(func() error {
			start := time.Now()
			items, language, err := classifyCategory(ctx, cl, profiles.For(cat), numbered, opts)
			outcome := CategoryOutcome{
				Category:   cat,
				Items:      len(items),
				DurationMs: time.Since(start).Milliseconds(),
			}

			mu.Lock()
			if err != nil {
				outcome.Items = 0
				outcome.Err = err.Error()
			} else {
				batch.Items = append(batch.Items, items...)
				if batch.Language == "" && language != "" {
					batch.Language = language
				}
			}
			batch.Outcomes[i] = outcome
			mu.Unlock()

			if err != nil {
				logger.WarnContext(ctx, "category analysis failed", "category", string(cat), "error", err)
			} else {
				logger.DebugContext(ctx, "category analysis done", "category", string(cat), "items", len(items), "duration_ms", outcome.DurationMs)
			}
			if opts.OnCategory != nil {
				opts.OnCategory(outcome)
			}
			// siblings must keep running
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}

	sort.SliceStable(batch.Items, func(i, j int) bool {
		return batch.Items[i].Severity > batch.Items[j].Severity
	})
	uniquifyTitles(batch.Items)
	return batch, nil
}

func classifyCategory(ctx context.Context, cl providers.Classifier, p Profile, numbered string, opts AnalyzeOptions) ([]Item, string, error) {
	req := providers.Request{
		System:      p.SystemPrompt(),
		Messages:    []providers.Message{providers.UserMessage(numbered)},
		Schema:      feedbackSchema,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	resp, err := cl.Complete(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("classifier: %w", err)
	}

	fl, err := decodeFeedback(resp.Content)
	if err != nil {
		// one repair pass with the bad reply in context
		req.Messages = append(req.Messages,
			providers.AssistantMessage(resp.Content),
			providers.UserMessage(repairPrompt(err)),
		)
		resp2, err2 := cl.Complete(ctx, req)
		if err2 != nil {
			return nil, "", fmt.Errorf("repair pass failed: %w (original error: %w)", err2, err)
		}
		fl, err = decodeFeedback(resp2.Content)
		if err != nil {
			return nil, "", fmt.Errorf("response validation failed after repair: %w", err)
		}
	}

	items := make([]Item, 0, len(fl.FeedbackPoints))
	for _, it := range fl.FeedbackPoints {
		it.Title = strings.TrimSpace(it.Title)
		it.LineNumbers = strings.TrimSpace(it.LineNumbers)
		if it.Title == "" || it.LineNumbers == "" {
			continue
		}
		items = append(items, it)
	}
	return items, strings.TrimSpace(fl.Language), nil
}

func decodeFeedback(content string) (feedbackList, error) {
	var fl feedbackList
	dec := json.NewDecoder(strings.NewReader(stripFences(content)))
	if err := dec.Decode(&fl); err != nil {
		return feedbackList{}, fmt.Errorf("invalid JSON object: %w", err)
	}
	if fl.FeedbackPoints == nil {
		return feedbackList{}, fmt.Errorf("response has no feedback_points field")
	}
	return fl, nil
}

// uniquifyTitles suffixes repeated titles with " (2)", " (3)", ... so each
// title names exactly one item in the pool.
func uniquifyTitles(items []Item) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.Title] = true
	}
	used := make(map[string]bool, len(items))
	for i := range items {
		title := items[i].Title
		if !used[title] {
			used[title] = true
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s (%d)", title, n)
			if !used[candidate] && !seen[candidate] {
				items[i].Title = candidate
				used[candidate] = true
				break
			}
		}
	}
}
