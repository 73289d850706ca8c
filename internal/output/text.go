package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/codecoach/internal/review"
)

// TextWriter renders the report for a terminal: one heading per severity
// bucket, each item's markdown rendered through glamour.
type TextWriter struct {
	Color bool
	Width int
}

var severityColors = map[int]lipgloss.Color{
	5: lipgloss.Color("#ef4444"),
	4: lipgloss.Color("#f97316"),
	3: lipgloss.Color("#eab308"),
	2: lipgloss.Color("#3b82f6"),
	1: lipgloss.Color("#6b7280"),
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	md, err := t.renderer()
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}

	rule := strings.Repeat("─", 60)
	header := fmt.Sprintf("Code Coach Review (%s)", languageOr(report.Language))
	ew.println(t.style(lipgloss.NewStyle().Bold(true), header))
	ew.println(rule)
	ew.printf("Feedback: %d item(s)", report.Summary.Total)
	if report.Summary.Total > 0 {
		ew.printf(" (%s)", countsLine(report.Summary))
	}
	ew.println("")
	if report.RedactedLines > 0 {
		ew.printf("Redacted %d line(s) containing secrets before review\n", report.RedactedLines)
	}
	ew.println(rule)

	if report.Summary.Total == 0 {
		ew.println("\nNo feedback. Nice work!")
	}

	for _, bucket := range report.Buckets {
		heading := fmt.Sprintf("%s %s (%d)", severityIcon(bucket.Severity), strings.ToUpper(bucket.Label), len(bucket.Items))
		ew.printf("\n%s\n", t.style(lipgloss.NewStyle().Bold(true).Foreground(colorFor(bucket.Severity)), heading))
		for _, it := range bucket.Items {
			out, err := md.Render(it.Text())
			if err != nil {
				return fmt.Errorf("rendering %q: %w", it.Title, err)
			}
			ew.printf("%s", out)
		}
	}

	if failed := failedOutcomes(report.Outcomes); len(failed) > 0 {
		ew.printf("\n%s\n", t.style(lipgloss.NewStyle().Foreground(colorFor(5)), "Some coaches did not respond:"))
		for _, o := range failed {
			ew.printf("  %s: %s\n", o.Category, o.Err)
		}
	}

	ew.printf("\n%s\n", rule)
	ew.printf("Completed in %dms (analysis: %dms, grouping: %dms)\n",
		report.Timing.TotalMs, report.Timing.AnalysisMs, report.Timing.GroupingMs)
	return ew.err
}

func (t *TextWriter) renderer() (*glamour.TermRenderer, error) {
	width := t.Width
	if width <= 0 {
		width = 80
	}
	style := styles.NoTTYStyle
	if t.Color {
		style = styles.DarkStyle
	}
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
}

func (t *TextWriter) style(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

func colorFor(sev int) lipgloss.Color {
	if c, ok := severityColors[sev]; ok {
		return c
	}
	return severityColors[1]
}

func severityIcon(sev int) string {
	switch {
	case sev >= 5:
		return "[!!!]"
	case sev == 4:
		return "[!!]"
	case sev == 3:
		return "[!]"
	case sev == 2:
		return "[-]"
	default:
		return "[i]"
	}
}

func countsLine(s review.Summary) string {
	var parts []string
	for sev := 5; sev >= 1; sev-- {
		if n := s.Counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(review.SeverityLabel(sev))))
		}
	}
	return strings.Join(parts, ", ")
}

func failedOutcomes(outcomes []review.CategoryOutcome) []review.CategoryOutcome {
	var out []review.CategoryOutcome
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func languageOr(lang string) string {
	if lang == "" {
		return "unknown language"
	}
	return lang
}
