package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"atslens/internal/config"
	"atslens/internal/errors"
	"atslens/internal/observability"
	"atslens/internal/watcher"
)

// CertificateManager serves TLS certificates and reloads them when the
// files on disk change
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time
	lastReloadTime   time.Time

	fileWatcher *watcher.Watcher

	config           *config.TLSConfig
	autoReloadConfig *config.AutoReloadConfig

	reloadCallbacks []ReloadCallback
	logger          *errors.Logger
	om              *observability.ObservabilityManager

	reloadCount        int64
	reloadSuccessCount int64
	reloadFailureCount int64
	lastReloadSuccess  bool
	lastReloadError    string
}

// ReloadCallback is called when certificates are reloaded
type ReloadCallback func(success bool, err error)

// CertificateMetrics holds metrics about certificate operations
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// NewCertificateManager creates a new certificate manager
func NewCertificateManager(tlsConfig *config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	if logger == nil {
		logger = errors.Discard()
	}
	return &CertificateManager{
		config:           tlsConfig,
		autoReloadConfig: &tlsConfig.AutoReload,
		logger:           logger,
		om:               om,
	}
}

// Start loads the certificates and starts watching their files
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}
	return cm.startFileWatcher()
}

// watchedFiles lists the configured certificate files
func (cm *CertificateManager) watchedFiles() []string {
	var files []string
	for _, f := range []string{cm.config.CertFile, cm.config.KeyFile, cm.config.CAFile} {
		if f != "" {
			files = append(files, filepath.Clean(f))
		}
	}
	return files
}

func (cm *CertificateManager) startFileWatcher() error {
	if !cm.autoReloadConfig.Enabled || !cm.autoReloadConfig.FileWatcher.Enabled {
		return nil
	}
	files := cm.watchedFiles()
	if len(files) == 0 {
		return nil
	}

	watched := make(map[string]bool, len(files))
	for _, f := range files {
		watched[f] = true
	}
	w := watcher.New(
		cm.autoReloadConfig.FileWatcher.DebounceDelay,
		func(p string) bool { return watched[filepath.Clean(p)] },
		func([]string) { cm.triggerReload() },
		cm.logger,
	)
	if err := w.Start(files...); err != nil {
		return fmt.Errorf("failed to start certificate file watcher: %w", err)
	}
	cm.fileWatcher = w

	cm.logger.Info("Certificate file watcher started", "files", files)
	return nil
}

// Stop stops watching the certificate files
func (cm *CertificateManager) Stop() error {
	if cm.fileWatcher != nil {
		if err := cm.fileWatcher.Stop(); err != nil {
			cm.logger.LogError(err, "Failed to stop certificate file watcher")
			return err
		}
	}
	cm.logger.Info("Certificate manager stopped")
	return nil
}

// WatcherRunning reports whether certificate files are being watched
func (cm *CertificateManager) WatcherRunning() bool {
	return cm.fileWatcher != nil && cm.fileWatcher.IsRunning()
}

// GetServerCertificate returns the current server certificate for TLS handshakes
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}
	if time.Now().After(cm.serverCertExpiry) {
		err := fmt.Errorf("server certificate expired")
		cm.logger.LogError(err, "Server certificate expired",
			"expiry", cm.serverCertExpiry,
			"server_name", hello.ServerName)
		return nil, err
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the current CA certificate pool
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// GetConfigForClient hands each handshake a config with the current CA pool,
// so reloaded client CAs apply to new connections
func (cm *CertificateManager) GetConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		if pool := cm.GetCACertPool(); pool != nil {
			cfg.ClientCAs = pool
		}
		return cfg, nil
	}
}

// ReloadCertificates manually triggers a certificate reload
func (cm *CertificateManager) ReloadCertificates() error {
	if err := cm.loadCertificates(); err != nil {
		cm.handleReloadError(err)
		return err
	}
	return nil
}

// AddReloadCallback adds a callback to be called when certificates are reloaded
func (cm *CertificateManager) AddReloadCallback(callback ReloadCallback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.reloadCallbacks = append(cm.reloadCallbacks, callback)
}

// CheckExpiry returns the time until the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCertExpiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.serverCertExpiry), nil
}

// GetMetrics returns certificate management metrics
func (cm *CertificateManager) GetMetrics() *CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return &CertificateMetrics{
		ReloadCount:        cm.reloadCount,
		ReloadSuccessCount: cm.reloadSuccessCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadSuccess:  cm.lastReloadSuccess,
		LastReloadError:    cm.lastReloadError,
	}
}

// loadCertificates loads certificates from files or content. The current
// certificates stay in place when loading fails.
func (cm *CertificateManager) loadCertificates() error {
	cert, expiry, err := loadKeyPair(cm.config)
	if err != nil {
		return err
	}
	var pool *x509.CertPool
	if cm.config.Mode == config.TLSModeMutual {
		if pool, err = loadCAPool(cm.config); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.serverCert = &cert
	cm.serverCertExpiry = expiry
	cm.caCertPool = pool
	cm.lastReloadTime = time.Now()
	cm.reloadCount++
	cm.reloadSuccessCount++
	cm.lastReloadSuccess = true
	cm.lastReloadError = ""
	callbacks := append([]ReloadCallback(nil), cm.reloadCallbacks...)
	cm.mu.Unlock()

	cm.om.RecordCertReload(context.Background(), true)
	cm.logger.Info("Certificates loaded", "server_cert_expiry", expiry)
	for _, cb := range callbacks {
		go cb(true, nil)
	}
	return nil
}

// loadKeyPair loads the server key pair and its expiry
func loadKeyPair(cfg *config.TLSConfig) (tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return cert, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return cert, time.Time{}, fmt.Errorf("failed to load server cert/key: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return cert, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf
	return cert, leaf.NotAfter, nil
}

// loadCAPool loads the CA pool used to verify client certificates
func loadCAPool(cfg *config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// triggerReload is called by the file watcher
func (cm *CertificateManager) triggerReload() {
	cm.logger.Info("Certificate reload triggered by file watcher")
	if err := cm.loadCertificates(); err != nil {
		cm.handleReloadError(err)
	}
}

func (cm *CertificateManager) handleReloadError(err error) {
	cm.mu.Lock()
	cm.reloadCount++
	cm.reloadFailureCount++
	cm.lastReloadSuccess = false
	cm.lastReloadError = err.Error()
	callbacks := append([]ReloadCallback(nil), cm.reloadCallbacks...)
	cm.mu.Unlock()

	cm.om.RecordCertReload(context.Background(), false)
	cm.logger.LogError(err, "Failed to reload certificates")

	for _, cb := range callbacks {
		go cb(false, err)
	}
}
