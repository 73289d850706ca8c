package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/codecoach/internal/cache"
	"github.com/dshills/codecoach/internal/config"
	"github.com/dshills/codecoach/internal/logging"
	"github.com/dshills/codecoach/internal/output"
	"github.com/dshills/codecoach/internal/providers"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/source"
	"github.com/dshills/codecoach/internal/thread"
)

// newClassifier builds the provider client. Tests replace it.
var newClassifier = providers.New

// loadConfig merges defaults, file, env and overrides, then validates.
func loadConfig(overrides map[string]string) (config.Config, error) {
	loader := config.NewLoader()
	if flagConfigFile != "" {
		loader = loader.WithConfigFile(flagConfigFile)
	}
	cfg, err := loader.Load(overrides)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
}

type engineOptions struct {
	categories []review.Category
	noCache    bool
	observer   review.Observer
}

// buildEngine assembles the classifier (cache-wrapped unless disabled),
// the coach profiles and the engine.
func buildEngine(cfg config.Config, logger *slog.Logger, opts engineOptions) (*review.Engine, error) {
	cl, err := newClassifier(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Enabled && !opts.noCache {
		c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		cl = providers.NewCached(cl, c, logger)
	}
	profiles, err := review.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	return &review.Engine{
		Classifier:  cl,
		Categories:  opts.categories,
		Profiles:    profiles,
		Concurrency: cfg.Concurrency,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Redact:      cfg.Privacy.RedactSecrets,
		Logger:      logger,
		Observer:    opts.observer,
	}, nil
}

// openThreadStore opens the configured thread database. With no path,
// persistent callers get one under the config directory and everyone
// else gets an in-memory store.
func openThreadStore(cfg config.Config, persistent bool) (thread.Store, error) {
	path := cfg.Threads.Path
	if path == "" {
		if !persistent {
			return thread.NewMemoryStore(), nil
		}
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "threads.db")
	}
	return thread.NewSQLiteStore(path)
}

// fail reports err and sets the exit code for its class.
func fail(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case providers.IsAuthError(err):
		return ExitAuthError
	case errors.Is(err, review.ErrEmptySource),
		errors.Is(err, review.ErrEmptyMessage),
		errors.Is(err, source.ErrBinary),
		errors.Is(err, source.ErrTooLarge):
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

// writeReport writes to --out when set, else to the command's stdout
// with terminal styling when it is a TTY.
func writeReport(cmd *cobra.Command, report *review.Report, format, outPath, artifact string) error {
	opts := output.Options{Artifact: artifact}
	if outPath != "" {
		return output.WriteReport(report, format, outPath, opts)
	}
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opts.Color = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			opts.Width = w - 4
		}
	}
	w, err := output.GetWriter(format, opts)
	if err != nil {
		return err
	}
	return w.Write(out, report)
}
