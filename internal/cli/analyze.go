package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"atslens/internal/common"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume.pdf|layout.json]",
	Short: "Analyze a resume for ATS compatibility",
	Long: `Analyze a resume PDF or a JSON layout fixture and report ATS compatibility
issues, highlights and scores.

Parsed fields and pre-scan diagnostics are read from --fields and --diagnostics,
or from <name>.fields.{json,yaml} and <name>.diagnostics.{json,yaml} next to the
document. Without fields, a PDF is sent to the remote parser when one is
configured (parser.url or --parser-url).

With --explain-context the command prints a condensed record of the issues,
metrics and text blocks instead of the full result.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig  common.CommandConfig
	analyzeRequest common.AnalyzeRequest
	parserURL      string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	analyzeCmd.Flags().StringVar(&analyzeRequest.FieldsFile, "fields", "", "Parsed resume fields (JSON or YAML)")
	analyzeCmd.Flags().StringVar(&analyzeRequest.DiagnosticsFile, "diagnostics", "", "Pre-scan layout diagnostics (JSON or YAML)")
	analyzeCmd.Flags().BoolVar(&analyzeRequest.ExplainContext, "explain-context", false, "Print the explanation context instead of the result")
	analyzeCmd.Flags().StringVar(&parserURL, "parser-url", "", "Remote parser URL; parser failures become errors (overrides config)")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	strict := false
	if parserURL != "" {
		cfg.Parser.URL = parserURL
		strict = true
	}

	om, shutdown, err := newObservability(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	runner := newRunner(cfg, logger, om, "cli", newParser(cfg.Parser, logger))
	runner.StrictParser = strict

	req := analyzeRequest
	req.Document = args[0]

	logger.Info("Starting ATS analysis",
		"file", req.Document,
		"output_format", analyzeConfig.OutputFormat,
		"explain_context", req.ExplainContext)

	if err := runner.Run(cmd.Context(), req, analyzeConfig); err != nil {
		return fmt.Errorf("failed to analyze %s: %w", req.Document, err)
	}
	return nil
}
