package common

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"atslens/internal/engine"
	"atslens/internal/errors"
	"atslens/internal/fields"
	"atslens/internal/observability"
	"atslens/internal/types"
	"atslens/internal/utils"
)

// FieldsParser extracts resume fields from a document, typically a remote
// parser reached through fields.Client
type FieldsParser interface {
	Parse(ctx context.Context, filename string, content []byte) (*types.ParsedFields, error)
}

// AnalyzeRequest selects the inputs of one file-based analysis
type AnalyzeRequest struct {
	Document string
	// FieldsFile and DiagnosticsFile default to <stem>.fields.{json,yaml,yml}
	// and <stem>.diagnostics.{json,yaml,yml} next to the document
	FieldsFile      string
	DiagnosticsFile string
	// Fields and Diagnostics, when set, are used instead of any file
	Fields      *types.ParsedFields
	Diagnostics *types.LayoutDiagnostics
	// Name is reported to the parser and in logs; defaults to the base name of Document
	Name           string
	ExplainContext bool
}

func (req AnalyzeRequest) name() string {
	if req.Name != "" {
		return req.Name
	}
	return filepath.Base(req.Document)
}

// Runner runs file-based analyses for the CLI and the inbox watcher
type Runner struct {
	Engine   *engine.Engine
	Parser   FieldsParser                        // optional
	Observer *observability.ObservabilityManager // optional
	Files    *FileProcessor
	Output   *OutputHandler
	Logger   *errors.Logger

	// StrictParser makes parser failures fatal instead of analyzing without fields
	StrictParser     bool
	MaxContextBlocks int
	Timeout          time.Duration
	// Source labels metrics and spans
	Source string
}

// Analyze resolves the side inputs of req and runs the engine over the document
func (r *Runner) Analyze(ctx context.Context, req AnalyzeRequest) (*engine.Analysis, error) {
	if err := r.Files.ValidateDocument(req.Document); err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	parsed, err := r.loadFields(ctx, req)
	if err != nil {
		return nil, err
	}
	diag, err := r.loadDiagnostics(req)
	if err != nil {
		return nil, err
	}

	var analysis *engine.Analysis
	_, err = r.Observer.TrackAnalysis(ctx, r.source(), func(ctx context.Context) (*types.AnalysisResult, error) {
		a, err := r.Engine.AnalyzeFile(ctx, req.Document, parsed, diag)
		if err != nil {
			return nil, err
		}
		analysis = a
		return a.Result, nil
	})
	if err != nil {
		return nil, err
	}

	r.Logger.Info("Document analyzed",
		"file", req.name(),
		"id", analysis.Result.ID,
		"issues", analysis.Result.Summary.Total,
		"overall", analysis.Result.Metrics.Overall,
		"with_fields", parsed != nil)
	return analysis, nil
}

// Run analyzes a document and writes the result, or its explanation
// context, in the configured format
func (r *Runner) Run(ctx context.Context, req AnalyzeRequest, cmdConfig CommandConfig) error {
	analysis, err := r.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if req.ExplainContext {
		return r.Output.HandleOutput(engine.ExplanationContext(analysis, r.MaxContextBlocks), cmdConfig)
	}
	return r.Output.HandleOutput(analysis.Result, cmdConfig)
}

func (r *Runner) loadFields(ctx context.Context, req AnalyzeRequest) (*types.ParsedFields, error) {
	if req.Fields != nil {
		return req.Fields, nil
	}
	path := req.FieldsFile
	if path == "" {
		path = utils.Sidecar(req.Document, "fields")
	}
	if path != "" {
		r.Logger.Debug("Loading parsed fields", "file", path)
		return fields.LoadFile(path)
	}

	if r.Parser == nil || utils.GetFileExtension(req.Document) != ".pdf" {
		return nil, nil
	}

	content, err := r.Files.ReadFile(req.Document)
	if err != nil {
		return nil, err
	}
	parsed, err := r.Parser.Parse(ctx, req.name(), content)
	if err != nil {
		if r.StrictParser {
			return nil, err
		}
		r.Logger.LogError(err, "Parser failed, analyzing without fields", "file", req.name())
		return nil, nil
	}
	return parsed, nil
}

func (r *Runner) loadDiagnostics(req AnalyzeRequest) (*types.LayoutDiagnostics, error) {
	if req.Diagnostics != nil {
		return req.Diagnostics, nil
	}
	path := req.DiagnosticsFile
	if path == "" {
		path = utils.Sidecar(req.Document, "diagnostics")
	}
	if path == "" {
		return nil, nil
	}
	r.Logger.Debug("Loading pre-scan diagnostics", "file", path)
	return fields.LoadDiagnosticsFile(path)
}

func (r *Runner) source() string {
	if r.Source == "" {
		return "cli"
	}
	return r.Source
}

// OutputPath returns where an inbox document's report goes: the outbox
// directory, same stem, extension by format
func OutputPath(outbox, document, format string) string {
	stem := filepath.Base(document)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	return filepath.Join(outbox, fmt.Sprintf("%s.%s", stem, extensionFor(format)))
}

func extensionFor(format string) string {
	switch format {
	case "markdown":
		return "md"
	case "text":
		return "txt"
	case "yaml":
		return "yaml"
	default:
		return "json"
	}
}
