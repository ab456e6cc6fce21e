package server

import (
	"encoding/json"
	"sync"
	"time"

	"atslens/internal/common"
	"atslens/internal/config"
	"atslens/internal/engine"
	atslensErrors "atslens/internal/errors"
)

// AnalyzeRequest is the body of POST /api/v1/analyze. The parts stay raw so
// each one is schema-checked by its own validator.
type AnalyzeRequest struct {
	Layout      json.RawMessage `json:"layout"`
	Fields      json.RawMessage `json:"fields,omitempty"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
}

// FontsRequest is the body of POST /api/v1/fonts
type FontsRequest struct {
	Fonts []string `json:"fonts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Analysis
	Engine *engine.Engine
	Parser common.FieldsParser // optional remote parser for PDF uploads

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// API Authentication; swapped at runtime when Vault rotates the keys
	keysMu  sync.RWMutex
	apiKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AnalysisTimeout bounds a single analysis; 0 disables it
	AnalysisTimeout  time.Duration
	MaxContextBlocks int

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *atslensErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host             string
	Port             string
	Version          string
	TLSConfig        config.TLSConfig
	APIKeys          []string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	AnalysisTimeout  time.Duration
	MaxContextBlocks int
	MaxRequestSize   int64
	RateLimit        *config.RateLimitConfig
	Engine           *engine.Engine
	Parser           common.FieldsParser
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *atslensErrors.Logger) *Server {
	if logger == nil {
		logger = atslensErrors.Discard()
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Options{Logger: logger})
	}

	srv := &Server{
		Host:             cfg.Host,
		Port:             cfg.Port,
		Version:          cfg.Version,
		AppConfig:        appCfg,
		Engine:           eng,
		Parser:           cfg.Parser,
		TLSConfig:        cfg.TLSConfig,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		AnalysisTimeout:  cfg.AnalysisTimeout,
		MaxContextBlocks: cfg.MaxContextBlocks,
		MaxRequestSize:   cfg.MaxRequestSize,
		RateLimit:        cfg.RateLimit,
		RateLimiter:      rateLimiter,
		Logger:           logger,
	}
	srv.SetAPIKeys(cfg.APIKeys)
	return srv
}

// SetAPIKeys replaces the accepted API keys. Empty keys are ignored; no keys
// disables authentication.
func (s *Server) SetAPIKeys(keys []string) {
	// Convert API keys slice to map for O(1) lookup
	m := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			m[key] = true
		}
	}
	s.keysMu.Lock()
	s.apiKeys = m
	s.keysMu.Unlock()
}

// APIKeyCount returns the number of accepted API keys
func (s *Server) APIKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys)
}

func (s *Server) validAPIKey(key string) bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return s.apiKeys[key]
}
