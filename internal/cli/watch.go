package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"atslens/internal/common"
	"atslens/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze resumes dropped into an inbox directory",
	Long: `Watch an inbox directory and write one report per document into an outbox.

Documents already in the inbox are analyzed first, skipping those whose report
is newer than the document and its sidecar files. New or changed documents and
sidecars (<name>.fields.json, <name>.diagnostics.yaml, ...) are then analyzed as
they settle. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if inbox, _ := cmd.Flags().GetString("inbox"); cmd.Flags().Changed("inbox") {
			cfg.Watch.Inbox = inbox
		}
		if outbox, _ := cmd.Flags().GetString("outbox"); cmd.Flags().Changed("outbox") {
			cfg.Watch.Outbox = outbox
		}
		if format, _ := cmd.Flags().GetString("format"); cmd.Flags().Changed("format") {
			cfg.Watch.Format = format
		}
		if cfg.Watch.Format == "" {
			cfg.Watch.Format = cfg.App.DefaultFormat
		}
		if cfg.Watch.Inbox == "" || cfg.Watch.Outbox == "" {
			return fmt.Errorf("both an inbox and an outbox directory are required")
		}
		return common.ValidateOutputFormat(cfg.Watch.Format, cfg.App.SupportedFormats)
	},
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("inbox", "", "Directory to watch for documents (overrides config)")
	watchCmd.Flags().String("outbox", "", "Directory reports are written to (overrides config)")
	watchCmd.Flags().String("format", "", "Report format: json, yaml, text, or markdown")
	watchCmd.Flags().Int("workers", 0, "Concurrent analyses (default: number of CPUs)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	om, shutdown, err := newObservability(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	parser := newParser(cfg.Parser, logger)
	stopSecrets, err := watchSecrets(cfg, nil, parser, logger)
	if err != nil {
		return err
	}
	defer stopSecrets()

	workers, _ := cmd.Flags().GetInt("workers")
	inbox := watcher.NewInbox(cfg.Watch, newRunner(cfg, logger, om, "watch", parser), workers, logger)
	return inbox.Run(cmd.Context())
}
