// Package engine ties the layout analyzer, matcher, detectors and metrics
// together into a single analysis call.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"atslens/internal/document"
	"atslens/internal/errors"
	"atslens/internal/issues"
	"atslens/internal/layout"
	"atslens/internal/matcher"
	"atslens/internal/scoring"
	"atslens/internal/sections"
	"atslens/internal/types"
)

// Options configures an Engine
type Options struct {
	// Workers bounds concurrent page extraction
	Workers int
	Logger  *errors.Logger
}

// Engine runs analyses. It holds no per-document state and is safe for
// concurrent use.
type Engine struct {
	analyzer *layout.Analyzer
	registry *issues.Registry
	logger   *errors.Logger
	now      func() time.Time
}

// New creates an engine with the default detector registry
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = errors.Discard()
	}
	return &Engine{
		analyzer: layout.NewAnalyzer(opts.Workers, logger),
		registry: issues.DefaultRegistry(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// Analysis is a result together with the intermediate data it was built from
type Analysis struct {
	Result    *types.AnalysisResult
	Layout    *types.Layout
	Partition matcher.Result
}

// Analyze runs the full pipeline over doc. It never fails on bad input:
// unreadable documents produce an unreadable issue and internal failures
// produce EmptyResult. The only error is context cancellation.
func (e *Engine) Analyze(ctx context.Context, doc layout.Document, fields *types.ParsedFields, diag *types.LayoutDiagnostics) (*types.AnalysisResult, error) {
	a, err := e.Run(ctx, doc, fields, diag)
	if err != nil {
		return nil, err
	}
	return a.Result, nil
}

// Run is Analyze but also returns the layout and matcher partition
func (e *Engine) Run(ctx context.Context, doc layout.Document, fields *types.ParsedFields, diag *types.LayoutDiagnostics) (a *Analysis, err error) {
	defer e.recoverInto(&a, &err)

	l, err := e.analyzer.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}
	return e.assemble(l, fields, diag), nil
}

// AnalyzeFile opens a PDF or JSON layout fixture and analyzes it. The
// document is closed before returning. Files that cannot be opened are
// reported as unreadable; unsupported file types are an error.
func (e *Engine) AnalyzeFile(ctx context.Context, path string, fields *types.ParsedFields, diag *types.LayoutDiagnostics) (a *Analysis, err error) {
	defer e.recoverInto(&a, &err)

	doc, err := document.Open(path)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == errors.ErrCodeInvalidFormat && appErr.Type == errors.ErrorTypeValidation {
			return nil, err
		}
		e.logger.LogError(err, "Document could not be opened", "file", path)
		return e.assemble(layout.Unreadable(err.Error()), fields, diag), nil
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			e.logger.Warn("Failed to close document", "file", path, "error", cerr.Error())
		}
	}()

	l, err := e.analyzer.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}
	return e.assemble(l, fields, diag), nil
}

// AnalyzeLayout runs detection and scoring over an already classified layout
func (e *Engine) AnalyzeLayout(l *types.Layout, fields *types.ParsedFields, diag *types.LayoutDiagnostics) (a *Analysis) {
	var err error
	defer e.recoverInto(&a, &err)
	return e.assemble(l, fields, diag)
}

func (e *Engine) recoverInto(a **Analysis, err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	e.logger.LogError(
		errors.NewInternalError(errors.ErrCodeAnalysisFailed, "analysis panicked", fmt.Errorf("%v", rec)),
		"Analysis failed", "stack", string(debug.Stack()),
	)
	*a = &Analysis{
		Result: EmptyResult(fmt.Sprintf("Analysis failed: %v", rec)),
		Layout: layout.Unreadable("analysis failed"),
	}
	*err = nil
}

func (e *Engine) assemble(l *types.Layout, fields *types.ParsedFields, diag *types.LayoutDiagnostics) *Analysis {
	if l == nil {
		l = layout.Unreadable("no layout")
	}

	computed := layout.Diagnose(l)
	merged := MergeDiagnostics(diag, computed)

	in := issues.NewInput(l, fields, &merged)
	metrics := scoring.Compute(merged, *in.Partition, fields)
	if merged.ComplexityMetric == nil {
		score := metrics.Complexity.Score
		merged.ComplexityMetric = &score
	}

	list := e.registry.Run(in)
	if list == nil {
		list = []types.ATSIssue{}
	}

	result := &types.AnalysisResult{
		ID:              uuid.NewString(),
		Highlights:      issues.Highlights(list),
		Summary:         issues.Summarize(list),
		Recommendations: issues.Recommendations(list),
		Issues:          issues.Messages(list),
		Details:         list,
		Metrics:         metrics,
		Sections:        sections.Summarize(fields, list),
		Diagnostics:     &merged,
		AnalyzedAt:      e.now().UTC(),
	}
	if l.Unreadable {
		result.Message = "Document could not be read"
		if l.UnreadableReason != "" {
			result.Message += ": " + l.UnreadableReason
		}
	}

	e.logger.Debug("Analysis complete",
		"id", result.ID,
		"pages", len(l.Pages),
		"blocks", len(l.Blocks),
		"issues", result.Summary.Total,
		"overall", metrics.Overall,
	)
	return &Analysis{Result: result, Layout: l, Partition: *in.Partition}
}

// MergeDiagnostics prefers a caller-supplied pre-scan record and fills the
// counts it left at zero from the computed one
func MergeDiagnostics(supplied *types.LayoutDiagnostics, computed types.LayoutDiagnostics) types.LayoutDiagnostics {
	if supplied == nil {
		return computed
	}
	d := *supplied
	if d.PageCount == 0 {
		d.PageCount = computed.PageCount
	}
	if d.CharacterCount == 0 {
		d.CharacterCount = computed.CharacterCount
	}
	if d.FontCount == 0 {
		d.FontCount = computed.FontCount
	}
	if len(d.Warnings) == 0 {
		d.Warnings = computed.Warnings
	}
	if d.ComplexityMetric != nil {
		v := *d.ComplexityMetric
		d.ComplexityMetric = &v
	}
	return d
}

// EmptyResult is the well-formed result returned when analysis cannot run
func EmptyResult(message string) *types.AnalysisResult {
	return &types.AnalysisResult{
		ID:              uuid.NewString(),
		Highlights:      []types.Highlight{},
		Recommendations: []string{},
		Issues:          []string{},
		Details:         []types.ATSIssue{},
		Metrics: types.Metrics{
			Complexity: types.ComplexityMetric{Label: scoring.LabelSimple, Factors: []string{}},
			Structure:  types.StructureMetric{Missing: []string{}},
		},
		Message:    message,
		AnalyzedAt: time.Now().UTC(),
	}
}
