package cli

import (
	"context"
	"fmt"
	"time"

	"atslens/internal/common"
	"atslens/internal/config"
	"atslens/internal/engine"
	"atslens/internal/errors"
	"atslens/internal/fields"
	"atslens/internal/observability"
)

// newObservability starts tracing and metrics for a command. The returned
// func flushes and shuts them down.
func newObservability(cfg *config.Config, logger *errors.Logger) (*observability.ObservabilityManager, func(), error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}, nil
}

// newParser returns the remote parser client, or nil when no parser URL is configured
func newParser(cfg config.ParserConfig, logger *errors.Logger) *fields.Client {
	if cfg.URL == "" {
		return nil
	}
	return fields.NewClient(cfg, nil, logger)
}

// asFieldsParser keeps a nil client from becoming a non-nil interface
func asFieldsParser(c *fields.Client) common.FieldsParser {
	if c == nil {
		return nil
	}
	return c
}

// newRunner builds the runner shared by analyze and watch
func newRunner(cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager, source string, parser *fields.Client) *common.Runner {
	return &common.Runner{
		Engine:           engine.New(engine.Options{Workers: cfg.Analysis.PageWorkers, Logger: logger}),
		Parser:           asFieldsParser(parser),
		Observer:         om,
		Files:            common.NewFileProcessor(logger, cfg.App.MaxFileSize),
		Output:           common.NewOutputHandler(logger),
		Logger:           logger,
		MaxContextBlocks: cfg.Analysis.MaxContextBlocks,
		Timeout:          cfg.Analysis.Timeout,
		Source:           source,
	}
}
