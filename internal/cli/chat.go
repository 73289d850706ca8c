package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codecoach/internal/redact"
	"github.com/dshills/codecoach/internal/review"
	"github.com/dshills/codecoach/internal/source"
	"github.com/dshills/codecoach/internal/thread"
)

// Chat flags
var (
	flagChatFile   string
	flagChatItem   int
	flagChatThread string
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask a follow-up question about one feedback item",
	Long: `Ask the coach a follow-up question about one feedback item.

Start a thread with --file and --item (the item's position in the review
output, starting at 1). The thread ID is printed to stderr; pass it with
--thread to keep the conversation going.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagChatThread == "" && flagChatFile == "" {
			return fmt.Errorf("either --thread or --file is required")
		}
		overrides, err := buildOverrides()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Privacy.RedactSecrets = false
		}
		logger := newLogger(cmd, cfg)
		ctx := cmd.Context()

		store, err := openThreadStore(cfg, true)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		defer store.Close()

		engine, err := buildEngine(cfg, logger, engineOptions{noCache: flagNoCache})
		if err != nil {
			fail(cmd, err)
			return nil
		}

		var t thread.Thread
		if flagChatThread != "" {
			t, err = store.Get(ctx, flagChatThread)
		} else {
			t, err = startThread(cmd, engine, store)
		}
		if err != nil {
			fail(cmd, err)
			return nil
		}

		message := strings.Join(args, " ")
		reply, err := review.Continue(ctx, engine.Classifier, t.Source, t.Item, t.UserMessages(), message, review.ConversationOptions{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if err := store.Append(ctx, t.ID,
			thread.Turn{Role: thread.RoleUser, Content: message},
			thread.Turn{Role: thread.RoleAssistant, Content: reply},
		); err != nil {
			fail(cmd, err)
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply)
		fmt.Fprintf(cmd.ErrOrStderr(), "thread %s (%d turns)\n", t.ID, len(t.Turns)+2)
		return nil
	},
}

// startThread reviews --file and opens a thread on the selected item.
func startThread(cmd *cobra.Command, engine *review.Engine, store thread.Store) (thread.Thread, error) {
	src, err := source.Load(cmd.Context(), flagChatFile, flagRev, cmd.InOrStdin())
	if err != nil {
		return thread.Thread{}, err
	}
	text := src.Text
	if engine.Redact {
		text, _ = redact.Source(text)
	}

	report, err := engine.Run(cmd.Context(), text)
	if err != nil {
		return thread.Thread{}, err
	}
	if flagChatItem < 1 || flagChatItem > len(report.Items) {
		return thread.Thread{}, fmt.Errorf("item %d out of range: the review has %d item(s)", flagChatItem, len(report.Items))
	}
	it := report.Items[flagChatItem-1]
	return store.Create(cmd.Context(), thread.Thread{
		Source:    text,
		ItemTitle: it.Title,
		Item:      it.Text(),
	})
}

func init() {
	addProviderFlags(chatCmd)
	addSourceFlags(chatCmd)
	chatCmd.Flags().StringVar(&flagChatFile, "file", "", "Source file to review (\"-\" for stdin)")
	chatCmd.Flags().IntVar(&flagChatItem, "item", 1, "Feedback item to discuss (1-based)")
	chatCmd.Flags().StringVar(&flagChatThread, "thread", "", "Continue an existing thread")
}
