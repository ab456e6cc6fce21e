package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"atslens/internal/config"
	"atslens/internal/engine"
	"atslens/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for ATS compatibility analysis",
	Long: `Start an HTTP server that provides REST API endpoints for ATS compatibility analysis.

Available endpoints:
- POST /api/v1/analyze: Analyze a JSON layout with optional fields and diagnostics
- POST /api/v1/analyze/pdf: Analyze an uploaded PDF (multipart field "file")
- POST /api/v1/fonts: Classify a list of font names
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded server config
func applyServeFlags(cmd *cobra.Command, cfg *config.ServerConfig) {
	overrides := map[string]*string{
		"port":      &cfg.Port,
		"host":      &cfg.Host,
		"tls-mode":  &cfg.TLS.Mode,
		"cert-file": &cfg.TLS.CertFile,
		"key-file":  &cfg.TLS.KeyFile,
		"ca-file":   &cfg.TLS.CAFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, &cfg.Server)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	parser := newParser(cfg.Parser, logger)
	serverCfg := server.ServerConfig{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		Version:          Version,
		TLSConfig:        cfg.Server.TLS,
		APIKeys:          cfg.Server.APIKeys,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		AnalysisTimeout:  cfg.Analysis.Timeout,
		MaxContextBlocks: cfg.Analysis.MaxContextBlocks,
		MaxRequestSize:   cfg.App.MaxFileSize,
		RateLimit:        &cfg.Server.RateLimit,
		Engine:           engine.New(engine.Options{Workers: cfg.Analysis.PageWorkers, Logger: logger}),
		Parser:           asFieldsParser(parser),
	}
	srv := server.NewServer(cfg, serverCfg, logger)

	stopSecrets, err := watchSecrets(cfg, srv.SetAPIKeys, parser, logger)
	if err != nil {
		return err
	}
	defer stopSecrets()

	return srv.Start(cmd.Context())
}
