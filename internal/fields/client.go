package fields

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"atslens/internal/config"
	"atslens/internal/errors"
	"atslens/internal/types"
)

const maxResponseBytes = 4 << 20

// Client calls a remote resume parser that returns ParsedFields as JSON.
// Calls go through a circuit breaker so a failing parser is not hammered
// by every analysis.
type Client struct {
	url     string
	token   atomic.Pointer[string]
	timeout time.Duration
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*types.ParsedFields]
	logger  *errors.Logger
}

// NewClient creates a parser client. httpClient may be nil.
func NewClient(cfg config.ParserConfig, httpClient *http.Client, logger *errors.Logger) *Client {
	if logger == nil {
		logger = errors.Discard()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		http:    httpClient,
		cb:      newBreaker(cfg.CircuitBreaker, logger),
		logger:  logger,
	}
	c.SetToken(cfg.Token)
	return c
}

// SetToken replaces the bearer token sent with later requests
func (c *Client) SetToken(token string) {
	c.token.Store(&token)
}

// newBreaker returns nil when the breaker is disabled
func newBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[*types.ParsedFields] {
	if !cfg.Enabled {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        "parser",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		// A document the parser rejects says nothing about the parser's health.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (stderrors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}
	return gobreaker.NewCircuitBreaker[*types.ParsedFields](settings)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("parser returned %d: %s", e.code, e.body)
}

// Parse uploads a document and returns the fields the parser extracted
func (c *Client) Parse(ctx context.Context, filename string, content []byte) (*types.ParsedFields, error) {
	if c.url == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "parser url is not configured", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	f, err := c.execute(func() (*types.ParsedFields, error) {
		return c.post(ctx, filename, content)
	})
	if err != nil {
		return nil, classify(err)
	}
	c.logger.Debug("Parser call complete", "file", filename, "duration_ms", time.Since(start).Milliseconds())
	return f, nil
}

func (c *Client) execute(fn func() (*types.ParsedFields, error)) (*types.ParsedFields, error) {
	if c.cb == nil {
		return fn()
	}
	return c.cb.Execute(fn)
}

func (c *Client) post(ctx context.Context, filename string, content []byte) (*types.ParsedFields, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if token := *c.token.Load(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(data[:min(len(data), 200)]))}
	}
	return Parse(data, FormatJSON)
}

// classify maps transport and breaker failures onto application errors
func classify(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var netErr net.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.NewNetworkError(errors.ErrCodeParserTimeout, "parser did not respond in time", err)
	case stderrors.Is(err, context.Canceled):
		return err
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewNetworkError(errors.ErrCodeParserUnavailable, "parser circuit breaker is open", err)
	}

	var se *statusError
	if stderrors.As(err, &se) {
		return errors.NewNetworkError(errors.ErrCodeParserUnavailable, "parser request failed", err).
			WithContext("status", se.code)
	}
	return errors.NewNetworkError(errors.ErrCodeParserUnavailable, "parser request failed", err)
}

// GetStats returns circuit breaker statistics
func (c *Client) GetStats() map[string]any {
	if c == nil || c.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    c.cb.Name(),
		"state":   c.cb.State().String(),
		"counts":  c.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed. A client without a
// breaker is always healthy.
func (c *Client) IsHealthy() bool {
	if c == nil || c.cb == nil {
		return true
	}
	return c.cb.State() == gobreaker.StateClosed
}
