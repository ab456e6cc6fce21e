package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"atslens/internal/common"
	"atslens/internal/document"
	"atslens/internal/engine"
	"atslens/internal/errors"
	"atslens/internal/fields"
	"atslens/internal/fonts"
	"atslens/internal/observability"
	"atslens/internal/types"
	"atslens/internal/utils"
)

// multipartMemory is how much of a multipart upload is held in memory
// before spilling to disk
const multipartMemory = 8 << 20

// createAnalyzeHandler analyzes a JSON layout with optional fields and
// diagnostics. ?context=true returns the explanation context instead of
// the result.
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("atslens.api").Start(r.Context(), "api.analyze")
		defer span.End()

		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if isEmptyJSON(req.Layout) {
			failSpan(span, fmt.Errorf("missing layout"), "validation")
			writeErrorResponse(w, "Missing layout", "layout field is required", http.StatusBadRequest)
			return
		}

		doc, err := document.ParseFixture(req.Layout)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, err, "Invalid layout")
			return
		}
		parsed, diag, err := decodeSideInputs(req.Fields, req.Diagnostics, fields.FormatJSON)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, err, "Invalid side input")
			return
		}

		span.SetAttributes(
			attribute.Int("request.pages", doc.PageCount()),
			attribute.Bool("request.has_fields", parsed != nil),
			attribute.Bool("request.has_diagnostics", diag != nil),
		)

		ctx, cancel := s.withAnalysisTimeout(ctx)
		defer cancel()

		var analysis *engine.Analysis
		_, err = om.TrackAnalysis(ctx, "http", func(ctx context.Context) (*types.AnalysisResult, error) {
			a, err := s.Engine.Run(ctx, doc, parsed, diag)
			if err != nil {
				return nil, err
			}
			analysis = a
			return a.Result, nil
		})
		if err != nil {
			failSpan(span, err, "analysis")
			writeAppError(w, err, "Analysis failed")
			return
		}

		s.writeAnalysis(w, r, span, analysis)
	}
}

// createAnalyzePDFHandler analyzes an uploaded PDF. The multipart form
// carries the document in "file" and optional "fields" and "diagnostics"
// parts as JSON or YAML. Without fields the remote parser is asked, if
// one is configured.
func (s *Server) createAnalyzePDFHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("atslens.api").Start(r.Context(), "api.analyze_pdf")
		defer span.End()

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Invalid multipart form", bodyError(err).Error(), statusForBody(err))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				s.Logger.Warn("Failed to remove multipart temp files", "error", err.Error())
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Missing file", "multipart part 'file' is required", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		if utils.GetFileExtension(header.Filename) != ".pdf" {
			err := errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("%s %q, expected .pdf", unsupportedTypeMessage, header.Filename), nil)
			failSpan(span, err, "validation")
			writeAppError(w, err, "Unsupported document type")
			return
		}

		fieldsData, fieldsFormat, err := formPart(r.MultipartForm, "fields")
		if err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Invalid fields part", err.Error(), http.StatusBadRequest)
			return
		}
		diagData, diagFormat, err := formPart(r.MultipartForm, "diagnostics")
		if err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Invalid diagnostics part", err.Error(), http.StatusBadRequest)
			return
		}
		parsed, err := decodeFields(fieldsData, fieldsFormat)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, err, "Invalid fields")
			return
		}
		diag, err := decodeDiagnostics(diagData, diagFormat)
		if err != nil {
			failSpan(span, err, "validation")
			writeAppError(w, err, "Invalid diagnostics")
			return
		}

		dir, err := os.MkdirTemp("", "atslens-upload-")
		if err != nil {
			failSpan(span, err, "io")
			writeErrorResponse(w, "Failed to store upload", err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() { _ = os.RemoveAll(dir) }()

		path := filepath.Join(dir, "document.pdf")
		if err := saveUpload(file, path); err != nil {
			failSpan(span, err, "io")
			writeErrorResponse(w, "Failed to store upload", err.Error(), http.StatusInternalServerError)
			return
		}

		span.SetAttributes(
			attribute.String("request.filename", header.Filename),
			attribute.Int64("request.size", header.Size),
			attribute.Bool("request.has_fields", parsed != nil),
		)

		analysis, err := s.runner(om).Analyze(ctx, common.AnalyzeRequest{
			Document:    path,
			Name:        header.Filename,
			Fields:      parsed,
			Diagnostics: diag,
		})
		if err != nil {
			failSpan(span, err, "analysis")
			writeAppError(w, err, "Analysis failed")
			return
		}

		s.writeAnalysis(w, r, span, analysis)
	}
}

// createFontsHandler classifies a list of raw font names
func (s *Server) createFontsHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := om.Tracer("atslens.api").Start(r.Context(), "api.fonts")
		defer span.End()

		var req FontsRequest
		if err := parseJSONRequest(r, &req); err != nil {
			failSpan(span, err, "validation")
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if req.Fonts == nil {
			failSpan(span, fmt.Errorf("missing fonts"), "validation")
			writeErrorResponse(w, "Missing fonts", "fonts field is required", http.StatusBadRequest)
			return
		}

		report := fonts.NewReport(req.Fonts)
		span.SetAttributes(
			attribute.Int("request.fonts", len(req.Fonts)),
			attribute.Int("response.families", report.Count()),
			attribute.Int("response.decorative", len(report.Decorative)),
		)
		writeJSON(w, http.StatusOK, report)
	}
}

// runner builds the file-based runner used for uploads
func (s *Server) runner(om *observability.ObservabilityManager) *common.Runner {
	return &common.Runner{
		Engine:           s.Engine,
		Parser:           s.Parser,
		Observer:         om,
		Files:            common.NewFileProcessor(s.Logger, s.MaxRequestSize),
		Logger:           s.Logger,
		MaxContextBlocks: s.MaxContextBlocks,
		Timeout:          s.AnalysisTimeout,
		Source:           "http",
	}
}

func (s *Server) withAnalysisTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.AnalysisTimeout > 0 {
		return context.WithTimeout(ctx, s.AnalysisTimeout)
	}
	return context.WithCancel(ctx)
}

// writeAnalysis responds with the result, or the explanation context when
// the request asks for it
func (s *Server) writeAnalysis(w http.ResponseWriter, r *http.Request, span trace.Span, a *engine.Analysis) {
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("analysis.id", a.Result.ID),
		attribute.Int("analysis.issues", a.Result.Summary.Total),
	)
	s.Logger.Info("Analysis served",
		"request_id", requestID(r.Context()),
		"id", a.Result.ID,
		"issues", a.Result.Summary.Total,
		"overall", a.Result.Metrics.Overall)

	if wantsContext(r) {
		writeJSON(w, http.StatusOK, engine.ExplanationContext(a, s.MaxContextBlocks))
		return
	}
	writeJSON(w, http.StatusOK, a.Result)
}

func wantsContext(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("context")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func failSpan(span trace.Span, err error, kind string) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", kind))
}

// decodeSideInputs validates the optional fields and diagnostics documents
func decodeSideInputs(fieldsData, diagData []byte, format fields.Format) (*types.ParsedFields, *types.LayoutDiagnostics, error) {
	parsed, err := decodeFields(fieldsData, format)
	if err != nil {
		return nil, nil, err
	}
	diag, err := decodeDiagnostics(diagData, format)
	if err != nil {
		return nil, nil, err
	}
	return parsed, diag, nil
}

func decodeFields(data []byte, format fields.Format) (*types.ParsedFields, error) {
	if isEmptyJSON(data) {
		return nil, nil
	}
	return fields.Parse(data, format)
}

func decodeDiagnostics(data []byte, format fields.Format) (*types.LayoutDiagnostics, error) {
	if isEmptyJSON(data) {
		return nil, nil
	}
	return fields.ParseDiagnostics(data, format)
}

// isEmptyJSON treats absent, blank and null values alike
func isEmptyJSON(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed == "" || trimmed == "null"
}

// formPart returns a named multipart value, sent either as a plain field
// or as a file. File parts pick their format from the file name.
func formPart(form *multipart.Form, name string) ([]byte, fields.Format, error) {
	if form == nil {
		return nil, fields.FormatJSON, nil
	}
	if values := form.Value[name]; len(values) > 0 {
		return []byte(values[0]), formatOfValue(values[0]), nil
	}
	headers := form.File[name]
	if len(headers) == 0 {
		return nil, fields.FormatJSON, nil
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read part %s: %w", name, err)
	}
	if ext := utils.GetFileExtension(headers[0].Filename); ext == "" {
		return data, formatOfValue(string(data)), nil
	}
	return data, fields.FormatOf(headers[0].Filename), nil
}

// formatOfValue guesses JSON or YAML for a value without a file name
func formatOfValue(v string) fields.Format {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return fields.FormatJSON
	}
	return fields.FormatYAML
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return dst.Close()
}
