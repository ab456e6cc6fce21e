package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"atslens/internal/common"
	"atslens/internal/document"
	"atslens/internal/fonts"
	"atslens/internal/layout"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts [resume.pdf|layout.json]",
	Short: "Classify the fonts used in a resume",
	Long: `List the distinct fonts a document uses, each classified as ATS-safe,
risky or problematic, with a suggested replacement for anything not safe.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if fontsConfig.OutputFormat == "" {
			fontsConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(fontsConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runFonts,
}

var fontsConfig common.CommandConfig

func init() {
	fontsCmd.Flags().StringVarP(&fontsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	fontsCmd.Flags().StringVar(&fontsConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
}

func runFonts(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	files := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	if err := files.ValidateDocument(args[0]); err != nil {
		return err
	}

	doc, err := document.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = doc.Close() }()

	l, err := layout.NewAnalyzer(cfg.Analysis.PageWorkers, logger).Analyze(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("failed to read layout of %s: %w", args[0], err)
	}
	if l.Unreadable {
		logger.Warn("Document has no extractable text; font list may be empty", "file", args[0])
	}

	return common.NewOutputHandler(logger).HandleOutput(fonts.NewReport(l.Fonts), fontsConfig)
}
