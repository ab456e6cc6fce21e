package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atslens/internal/errors"
)

// Certificate expiry thresholds reported by /health
const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// unsupportedTypeMessage prefixes INVALID_FORMAT errors about the file type
// rather than its content
const unsupportedTypeMessage = "unsupported document type"

// parserHealth is implemented by parsers that expose circuit breaker state
type parserHealth interface {
	IsHealthy() bool
	GetStats() map[string]any
}

// healthHandler reports service health including the remote parser's
// circuit breaker and certificate expiry
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "atslens",
		"version": s.Version,
	}

	healthy := true

	parserStatus := s.checkParserHealth()
	response["parser"] = parserStatus
	if ok, _ := parserStatus["healthy"].(bool); !ok {
		healthy = false
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkParserHealth reports whether the remote parser can take requests.
// No parser configured is healthy: analyses simply run without fields.
func (s *Server) checkParserHealth() map[string]any {
	if s.Parser == nil {
		return map[string]any{"configured": false, "healthy": true}
	}
	ph, ok := s.Parser.(parserHealth)
	if !ok {
		return map[string]any{"configured": true, "healthy": true}
	}

	healthy := ph.IsHealthy()
	status := map[string]any{
		"configured":      true,
		"healthy":         healthy,
		"circuit_breaker": ph.GetStats(),
	}
	if !healthy {
		status["message"] = "Circuit breaker is not closed; analyses run without parsed fields"
	}
	return status
}

// checkCertificateHealth checks the health of TLS certificates
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["time_to_expiry"] = timeToExpiry.String()

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
		certStatus["message"] = "Certificate has expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
		certStatus["message"] = "Certificate expires within 24 hours"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
		certStatus["message"] = "Certificate expires within 7 days"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
		certStatus["message"] = "Certificate is valid"
	}

	autoReload := map[string]any{"enabled": s.TLSConfig.AutoReload.Enabled}
	if s.TLSConfig.AutoReload.Enabled {
		autoReload["file_watcher_enabled"] = s.TLSConfig.AutoReload.FileWatcher.Enabled
		autoReload["file_watcher_running"] = s.CertificateManager.WatcherRunning()
	}
	certStatus["auto_reload"] = autoReload

	m := s.CertificateManager.GetMetrics()
	certStatus["metrics"] = map[string]any{
		"reload_count":         m.ReloadCount,
		"reload_success_count": m.ReloadSuccessCount,
		"reload_failure_count": m.ReloadFailureCount,
		"last_reload_time":     m.LastReloadTime,
		"last_reload_success":  m.LastReloadSuccess,
		"last_reload_error":    m.LastReloadError,
	}

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atslens",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"analysis_timeout":       s.AnalysisTimeout.String(),
			"auth_enabled":           s.APIKeyCount() > 0,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if ph, ok := s.Parser.(parserHealth); ok {
		response["parser"] = ph.GetStats()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyError(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// bodyError turns body read failures into a client-facing message
func bodyError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
	}
	return fmt.Errorf("failed to read request body: %w", err)
}

func statusForBody(err error) int {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// statusFor maps an analysis error to an HTTP status
func statusFor(err error) int {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if stderrors.Is(err, context.Canceled) {
		return 499 // client closed request
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeParserTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeParserUnavailable:
		return http.StatusBadGateway
	case errors.ErrCodeInvalidFormat:
		if strings.HasPrefix(strings.ToLower(appErr.Message), unsupportedTypeMessage) {
			return http.StatusUnsupportedMediaType
		}
	}
	if appErr.Type == errors.ErrorTypeValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeAppError writes err with the status and code it maps to
func writeAppError(w http.ResponseWriter, err error, message string) {
	response := ErrorResponse{
		Error:     message,
		Message:   err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		response.Code = appErr.Code
	}
	writeJSON(w, statusFor(err), response)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:     error,
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}
