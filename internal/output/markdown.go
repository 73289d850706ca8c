package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/codecoach/internal/review"
)

// MarkdownWriter outputs a markdown report with a collapsible section
// per severity.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.printf("## Code Coach Review\n\n")
	if report.Language != "" {
		ew.printf("Language: `%s`\n\n", report.Language)
	}

	ew.println("| Severity | Count |")
	ew.println("|----------|-------|")
	for sev := 5; sev >= 1; sev-- {
		ew.printf("| %s | %d |\n", review.SeverityLabel(sev), report.Summary.Counts[sev])
	}
	ew.printf("| **Total** | **%d** |\n\n", report.Summary.Total)

	if report.Summary.Total == 0 {
		ew.println("No feedback. :white_check_mark:")
	}

	for _, bucket := range report.Buckets {
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(bucket.Severity), strings.ToUpper(bucket.Label), len(bucket.Items))
		for _, it := range bucket.Items {
			ew.printf("%s\n\n---\n\n", it.Text())
		}
		ew.printf("</details>\n\n")
	}

	if failed := failedOutcomes(report.Outcomes); len(failed) > 0 {
		ew.println("> **Some coaches did not respond:**")
		for _, o := range failed {
			ew.printf("> - %s: %s\n", o.Category, o.Err)
		}
		ew.println("")
	}

	ew.printf("*Reviewed in %dms (analysis: %dms, grouping: %dms)*\n",
		report.Timing.TotalMs, report.Timing.AnalysisMs, report.Timing.GroupingMs)
	return ew.err
}

func mdSeverityIcon(sev int) string {
	switch {
	case sev >= 5:
		return ":red_circle:"
	case sev == 4:
		return ":orange_circle:"
	case sev == 3:
		return ":yellow_circle:"
	case sev == 2:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

// SummaryLine describes s in one line.
func SummaryLine(s review.Summary) string {
	if s.Total == 0 {
		return "no feedback"
	}
	return fmt.Sprintf("%d item(s): %s", s.Total, countsLine(s))
}
