package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codecoach/internal/output"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/source"
)

// Review flags
var (
	flagProvider    string
	flagModel       string
	flagFormat      string
	flagOut         string
	flagFailOn      string
	flagCategories  string
	flagProfiles    string
	flagRev         string
	flagConcurrency int
	flagNoRedact    bool
	flagNoCache     bool
)

func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (anthropic, openai, gemini, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagRev, "rev", "", "Read the file as of this git revision")
	cmd.Flags().StringVar(&flagProfiles, "profiles", "", "Coach profiles file (YAML)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
}

func buildOverrides() (map[string]string, error) {
	m := map[string]string{
		"provider":      flagProvider,
		"model":         flagModel,
		"format":        flagFormat,
		"profiles_file": flagProfiles,
	}
	if flagFailOn != "" {
		n, err := parseFailOn(flagFailOn)
		if err != nil {
			return nil, err
		}
		m["fail_on"] = strconv.Itoa(n)
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	return m, nil
}

// parseFailOn accepts a severity number (0 disables) or label.
func parseFailOn(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 5 {
			return 0, fmt.Errorf("fail-on must be between 0 and 5, got %d", n)
		}
		return n, nil
	}
	if s == "none" {
		return 0, nil
	}
	for sev := 1; sev <= 5; sev++ {
		if strings.ToLower(review.SeverityLabel(sev)) == s {
			return sev, nil
		}
	}
	// "info" reads as Informational
	if s == "info" {
		return 1, nil
	}
	return 0, fmt.Errorf("unknown severity %q (want 0-5 or none, informational, low, medium, high, critical)", s)
}

var reviewCmd = &cobra.Command{
	Use:   "review [file|-]",
	Short: "Review a source file (stdin by default)",
	Long:  "Review a source file with every coach. Reads stdin when no file or \"-\" is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := buildOverrides()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		categories, err := review.ParseCategories(flagCategories)
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
			fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: secret redaction is disabled")
		}
		logger := newLogger(cmd, cfg)

		var arg string
		if len(args) > 0 {
			arg = args[0]
		}
		src, err := source.Load(cmd.Context(), arg, flagRev, cmd.InOrStdin())
		if err != nil {
			fail(cmd, err)
			return nil
		}

		engine, err := buildEngine(cfg, logger, engineOptions{categories: categories, noCache: flagNoCache})
		if err != nil {
			fail(cmd, err)
			return nil
		}
		report, err := engine.Run(cmd.Context(), src.Text)
		if err != nil {
			fail(cmd, err)
			return nil
		}

		if err := writeReport(cmd, report, cfg.Format, flagOut, src.Name); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		logger.Debug("review written", "summary", output.SummaryLine(report.Summary), "run_id", report.RunID)

		if report.MeetsThreshold(cfg.FailOn) {
			exitCode = ExitFindings
		}
		return nil
	},
}

func init() {
	addProviderFlags(reviewCmd)
	addSourceFlags(reviewCmd)
	reviewCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	reviewCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	reviewCmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when any item reaches this severity (0-5 or a label)")
	reviewCmd.Flags().StringVar(&flagCategories, "categories", "", "Coaches to run (comma-separated: performance, readability, advanced, bug)")
	reviewCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Parallel coach requests")
}
