package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarkdownWriter_NoFeedback(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No feedback") {
		t.Errorf("expected no-feedback message:\n%s", out)
	}
	if strings.Contains(out, "<details>") {
		t.Error("empty report should have no sections")
	}
}

func TestMarkdownWriter_Sections(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"## Code Coach Review",
		"Language: `go`",
		"| Critical | 1 |",
		"| **Total** | **2** |",
		"<summary>:red_circle: CRITICAL (1)</summary>",
		"### Unchecked index",
		"Critical (Bug), Lines 3-5,9",
		"Performance: rate limited",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Unchecked index") > strings.Index(out, "Vague name") {
		t.Error("critical item should come before low item")
	}
}
