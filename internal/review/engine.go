package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codecoach/internal/providers"
	"github.com/dshills/codecoach/internal/redact"
)

// ReportVersion is the report schema version.
const ReportVersion = "1.0"

// Summary provides an overview of the merged items.
type Summary struct {
	Total   int         `json:"total"`
	Counts  map[int]int `json:"counts"`
	Highest int         `json:"highest"`
}

// Timing contains per-stage durations.
type Timing struct {
	AnalysisMs int64 `json:"analysisMs"`
	GroupingMs int64 `json:"groupingMs"`
	TotalMs    int64 `json:"totalMs"`
}

// Report is the result of one submission.
type Report struct {
	Tool          string            `json:"tool"`
	Version       string            `json:"version"`
	RunID         string            `json:"runId"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	Language      string            `json:"language"`
	RedactedLines int               `json:"redactedLines,omitempty"`
	Summary       Summary           `json:"summary"`
	Items         []Item            `json:"items"`
	Buckets       []SeverityBucket  `json:"buckets"`
	Outcomes      []CategoryOutcome `json:"outcomes"`
	Groups        []MergeGroup      `json:"groups,omitempty"`
	Timing        Timing            `json:"timing"`
}

// ComputeSummary calculates the summary from items.
func ComputeSummary(items []Item) Summary {
	s := Summary{Total: len(items), Counts: make(map[int]int)}
	for _, it := range items {
		s.Counts[it.Severity]++
		if it.Severity > s.Highest {
			s.Highest = it.Severity
		}
	}
	return s
}

// MeetsThreshold reports whether any item is at or above failOn.
// A threshold of 0 disables the check.
func (r *Report) MeetsThreshold(failOn int) bool {
	return failOn > 0 && r.Summary.Highest >= failOn
}

// Observer receives pipeline events. Implementations must be safe for
// concurrent use; CategoryDone fires from fan-out goroutines.
type Observer interface {
	CategoryDone(o CategoryOutcome)
	GroupingDone(groups int, d time.Duration, err error)
	SubmissionDone(r *Report, d time.Duration, err error)
}

// Engine runs whole submissions: fan-out, grouping, merge, bucketing.
type Engine struct {
	Classifier  providers.Classifier
	Categories  []Category // nil means DefaultCategories
	Profiles    Profiles   // nil means DefaultProfiles
	Concurrency int
	MaxTokens   int
	Temperature float64
	Redact      bool
	Logger      *slog.Logger
	Observer    Observer
}

// Run reviews source. A failed submission returns no report.
func (e *Engine) Run(ctx context.Context, source string) (*Report, error) {
	start := time.Now()
	report, err := e.run(ctx, source, start)
	if err != nil {
		report = nil
	}
	if e.Observer != nil {
		e.Observer.SubmissionDone(report, time.Since(start), err)
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, source string, start time.Time) (*Report, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if e.Classifier == nil {
		return nil, fmt.Errorf("engine has no classifier")
	}
	logger := e.logger()
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	var redacted int
	if e.Redact {
		source, redacted = redact.Source(source)
		if redacted > 0 {
			logger.InfoContext(ctx, "redacted secrets from source", "lines", redacted)
		}
	}

	categories := e.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	batch, err := Analyze(ctx, e.Classifier, source, categories, AnalyzeOptions{
		Concurrency: e.Concurrency,
		MaxTokens:   e.MaxTokens,
		Temperature: e.Temperature,
		Profiles:    e.Profiles,
		Logger:      logger,
		OnCategory:  e.categoryDone,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing source: %w", err)
	}
	analysisMs := time.Since(start).Milliseconds()

	groupStart := time.Now()
	groups, err := FindSimilar(ctx, e.Classifier, batch.Items, GroupingOptions{
		MaxTokens:   e.MaxTokens,
		Temperature: e.Temperature,
		Logger:      logger,
	})
	if e.Observer != nil {
		e.Observer.GroupingDone(len(groups), time.Since(groupStart), err)
	}
	if err != nil {
		return nil, fmt.Errorf("grouping feedback: %w", err)
	}
	groupingMs := time.Since(groupStart).Milliseconds()

	merged, err := Merge(batch.Items, groups)
	if err != nil {
		return nil, fmt.Errorf("merging feedback: %w", err)
	}
	buckets := Bucket(merged)

	logger.InfoContext(ctx, "review complete",
		"pooled", len(batch.Items),
		"groups", len(groups),
		"items", len(merged),
		"language", batch.Language,
	)

	return &Report{
		Tool:          "codecoach",
		Version:       ReportVersion,
		RunID:         runID,
		Provider:      e.Classifier.Name(),
		Model:         e.Classifier.Model(),
		Language:      batch.Language,
		RedactedLines: redacted,
		Summary:       ComputeSummary(merged),
		Items:         Flatten(buckets),
		Buckets:       buckets,
		Outcomes:      batch.Outcomes,
		Groups:        groups,
		Timing: Timing{
			AnalysisMs: analysisMs,
			GroupingMs: groupingMs,
			TotalMs:    time.Since(start).Milliseconds(),
		},
	}, nil
}

func (e *Engine) categoryDone(o CategoryOutcome) {
	if e.Observer != nil {
		e.Observer.CategoryDone(o)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
