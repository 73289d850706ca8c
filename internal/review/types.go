package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/codecoach/internal/lines"
)

// Category names the coach that produced an item.
type Category string

const (
	CategoryPerformance Category = "Performance"
	CategoryReadability Category = "Readability"
	CategoryAdvanced    Category = "Advanced"
	CategoryBug         Category = "Bug"
)

// DefaultCategories is the full coach line-up, in submission order.
var DefaultCategories = []Category{
	CategoryPerformance,
	CategoryReadability,
	CategoryAdvanced,
	CategoryBug,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range DefaultCategories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ParseCategories parses a comma-separated list. An empty list yields
// DefaultCategories.
func ParseCategories(list string) ([]Category, error) {
	if strings.TrimSpace(list) == "" {
		return DefaultCategories, nil
	}
	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(list, ",") {
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Item is one discrete piece of feedback. Field names follow the
// classifier's response schema.
type Item struct {
	Title       string   `json:"title" jsonschema_description:"The title of the feedback point."`
	Description string   `json:"description" jsonschema_description:"A detailed explanation of the feedback given."`
	Questions   string   `json:"questions" jsonschema_description:"Acting as a coach, use questioning to help the trainee understand the feedback."`
	LineNumbers string   `json:"line_numbers" jsonschema_description:"The line numbers in the code where the feedback applies. Denoted as a comma separated list of individual numbers or ranges of numbers (e.g. 3,4,10-15)."`
	CodeExample string   `json:"code_example" jsonschema_description:"A code example providing a solution or illustration related to the feedback."`
	Summary     string   `json:"summary" jsonschema_description:"A very short summary of the problem for a beginner, without using any of the words in the title."`
	Category    Category `json:"type" jsonschema:"enum=Performance,enum=Readability,enum=Advanced,enum=Bug"`
	Severity    int      `json:"severity" jsonschema_description:"The severity of the feedback from 1 (Informational) to 5 (Critical): 5=Critical 4=High 3=Medium 2=Low 1=Informational."`
}

// Lines decodes the item's line-range expression.
func (it Item) Lines() []int {
	return lines.Decode(it.LineNumbers)
}

// Text renders the item as markdown, the form a coach conversation
// starts from.
func (it Item) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n", it.Title)
	fmt.Fprintf(&b, "%s (%s), %s\n\n", SeverityLabel(it.Severity), it.Category, lines.Label(it.LineNumbers))
	if it.Description != "" {
		b.WriteString(it.Description)
		b.WriteString("\n\n")
	}
	if it.Questions != "" {
		b.WriteString(it.Questions)
		b.WriteString("\n\n")
	}
	if it.CodeExample != "" {
		b.WriteString(it.CodeExample)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// MergeGroup is a set of titles the classifier judged to describe the same
// root problem.
type MergeGroup []string

// CategoryOutcome records how one category's analysis settled.
type CategoryOutcome struct {
	Category   Category `json:"category"`
	Items      int      `json:"items"`
	Err        string   `json:"error,omitempty"`
	DurationMs int64    `json:"durationMs"`
}

// OK reports whether the category contributed to the pool.
func (o CategoryOutcome) OK() bool { return o.Err == "" }

// Batch is the pooled fan-out output for one submission.
type Batch struct {
	Items    []Item
	Language string
	Outcomes []CategoryOutcome
}

var (
	// ErrMissingTitle is returned when a merge group names a title that is
	// not in the batch.
	ErrMissingTitle = errors.New("missing feedback for title")

	// ErrSuperseded is returned by a Session run that a newer submission
	// replaced.
	ErrSuperseded = errors.New("submission superseded")

	// ErrEmptySource is returned when there is nothing to review.
	ErrEmptySource = errors.New("source is empty")

	// ErrEmptyMessage is returned by Continue for a blank follow-up.
	ErrEmptyMessage = errors.New("message is empty")
)

// SeverityLabel names a severity value. Out-of-range values read as
// Informational.
func SeverityLabel(sev int) string {
	switch sev {
	case 5:
		return "Critical"
	case 4:
		return "High"
	case 3:
		return "Medium"
	case 2:
		return "Low"
	default:
		return "Informational"
	}
}

// feedbackList is the categorized-feedback response schema.
type feedbackList struct {
	Language       string `json:"language" jsonschema_description:"The programming language of the code as a Prism syntax-highlighting identifier (e.g. python, javascript, go)."`
	FeedbackPoints []Item `json:"feedback_points" jsonschema_description:"A collection of feedback points."`
}

// mergeDecisions is the grouping response schema.
type mergeDecisions struct {
	MergeGroups [][]string `json:"merge_groups" jsonschema_description:"Each group is a list of two or more feedback titles that describe the same issue."`
}
