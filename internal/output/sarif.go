package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/codecoach/internal/lines"
	"github.com/dshills/codecoach/internal/review"
)

// SARIFWriter outputs feedback in SARIF v2.1.0 format. Each contiguous
// run of an item's lines becomes one region.
type SARIFWriter struct {
	Artifact string
}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	data, err := json.MarshalIndent(buildSARIF(report, s.artifact()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

func (s *SARIFWriter) artifact() string {
	if s.Artifact == "" {
		return "source"
	}
	return s.Artifact
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *review.Report, artifact string) sarifLog {
	var (
		rules   []sarifRule
		results = []sarifResult{}
		seen    = make(map[string]bool)
	)

	for _, it := range report.Items {
		ruleID := generateRuleID(it)
		if !seen[ruleID] {
			seen[ruleID] = true
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             string(it.Category),
				ShortDescription: sarifMessage{Text: it.Title},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(it.Severity)},
				Properties:       sarifRuleProperties{Tags: []string{string(it.Category), review.SeverityLabel(it.Severity)}},
			})
		}

		msg := it.Description
		if msg == "" {
			msg = it.Title
		}
		result := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(it.Severity),
			Message: sarifMessage{Text: msg},
		}
		for _, run := range lines.Runs(it.Lines()) {
			// SARIF lines are 1-based
			if run.End < 1 {
				continue
			}
			run.Start = max(run.Start, 1)
			result.Locations = append(result.Locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: artifact},
					Region:           sarifRegion{StartLine: run.Start, EndLine: run.End},
				},
			})
		}
		if it.CodeExample != "" {
			result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: it.CodeExample}})
		}
		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "codecoach",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/codecoach",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// severityToLevel maps the 1..5 severity scale to a SARIF level.
func severityToLevel(sev int) string {
	switch {
	case sev >= 4:
		return "error"
	case sev == 3:
		return "warning"
	default:
		return "note"
	}
}

// generateRuleID creates a stable rule ID from category + title.
func generateRuleID(it review.Item) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s/%s", it.Category, it.Title)))
	return fmt.Sprintf("codecoach/%s/%x", it.Category, h[:4])
}
