package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/codecoach/internal/metrics"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/server"
)

// Serve flags
var (
	flagAddr    string
	flagOrigins string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review API for the coaching UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := buildOverrides()
		if err != nil {
			return err
		}
		overrides["server.addr"] = flagAddr
		overrides["server.allowed_origins"] = flagOrigins
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
		}
		logger := newLogger(cmd, cfg)

		rec := metrics.New()
		engine, err := buildEngine(cfg, logger, engineOptions{noCache: flagNoCache, observer: rec})
		if err != nil {
			fail(cmd, err)
			return nil
		}
		store, err := openThreadStore(cfg, false)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		defer store.Close()

		srv := server.New(engine,
			server.WithLogger(logger),
			server.WithMetrics(rec),
			server.WithThreads(store),
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
			server.WithConversation(review.ConversationOptions{
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
			}),
		)
		if err := srv.ListenAndServe(cmd.Context(), cfg.Server.Addr); err != nil {
			fail(cmd, fmt.Errorf("serving: %w", err))
		}
		return nil
	},
}

func init() {
	addProviderFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagProfiles, "profiles", "", "Coach profiles file (YAML)")
	serveCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	serveCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config: 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&flagOrigins, "origins", "", "Allowed CORS origins (comma-separated)")
}
