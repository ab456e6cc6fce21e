package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/config"
	"atslens/internal/errors"
)

// writeSelfSigned writes a self-signed certificate and key valid for ttl
func writeSelfSigned(t *testing.T, dir string, ttl time.Duration) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(ttl),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestCertificateManagerLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, 48*time.Hour)

	cfg := &config.TLSConfig{Mode: config.TLSModeMutual, CertFile: certFile, KeyFile: keyFile, CAFile: certFile}
	cm := NewCertificateManager(cfg, nil, errors.Discard())
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()

	assert.False(t, cm.WatcherRunning(), "auto reload is off")
	expiry, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.InDelta(t, (48 * time.Hour).Hours(), expiry.Hours(), 0.1)
	assert.NotNil(t, cm.GetCACertPool())

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.NotNil(t, cert.Leaf)

	// A broken key keeps the previous certificate in service
	require.NoError(t, os.WriteFile(keyFile, []byte("garbage"), 0600))
	assert.Error(t, cm.ReloadCertificates())
	again, err := cm.GetServerCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Same(t, cert, again)

	m := cm.GetMetrics()
	assert.Equal(t, int64(2), m.ReloadCount)
	assert.Equal(t, int64(1), m.ReloadFailureCount)
	assert.False(t, m.LastReloadSuccess)
	assert.NotEmpty(t, m.LastReloadError)
}

func TestCertificateManagerWatchesFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, 24*time.Hour)

	cfg := &config.TLSConfig{
		Mode:     config.TLSModeServer,
		CertFile: certFile,
		KeyFile:  keyFile,
		AutoReload: config.AutoReloadConfig{
			Enabled:     true,
			FileWatcher: config.FileWatcherConfig{Enabled: true, DebounceDelay: 50 * time.Millisecond},
		},
	}
	cm := NewCertificateManager(cfg, nil, errors.Discard())
	reloaded := make(chan bool, 4)
	cm.AddReloadCallback(func(success bool, _ error) { reloaded <- success })
	require.NoError(t, cm.Start())
	defer func() { _ = cm.Stop() }()
	assert.True(t, cm.WatcherRunning())
	<-reloaded // initial load

	writeSelfSigned(t, dir, 30*24*time.Hour)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ok := <-reloaded:
			if !ok {
				continue // key and cert can be caught mid-rewrite
			}
			expiry, err := cm.CheckExpiry()
			require.NoError(t, err)
			if expiry > 48*time.Hour {
				return
			}
		case <-deadline:
			t.Fatal("certificate change was not picked up")
		}
	}
}

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, 24*time.Hour)

	t.Run("static server certificate", func(t *testing.T) {
		s := newTestServer(t, func(c *ServerConfig) {
			c.TLSConfig = config.TLSConfig{Mode: config.TLSModeServer, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"}
		})
		cfg, err := s.buildTLSConfig()
		require.NoError(t, err)
		assert.Len(t, cfg.Certificates, 1)
		assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
		assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
	})

	t.Run("mutual with reloadable CA", func(t *testing.T) {
		s := newTestServer(t, func(c *ServerConfig) {
			c.TLSConfig = config.TLSConfig{
				Mode: config.TLSModeMutual, CertFile: certFile, KeyFile: keyFile, CAFile: certFile,
				ClientAuthPolicy: "verify",
				CipherSuites:     []string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256", "NOT_A_SUITE"},
			}
		})
		s.CertificateManager = NewCertificateManager(&s.TLSConfig, nil, errors.Discard())
		require.NoError(t, s.CertificateManager.Start())

		cfg, err := s.buildTLSConfig()
		require.NoError(t, err)
		assert.NotNil(t, cfg.GetCertificate)
		assert.Equal(t, tls.VerifyClientCertIfGiven, cfg.ClientAuth)
		assert.Equal(t, []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256}, cfg.CipherSuites)

		perConn, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{})
		require.NoError(t, err)
		assert.NotNil(t, perConn.ClientCAs)
		assert.Nil(t, perConn.GetConfigForClient)
	})

	t.Run("missing key", func(t *testing.T) {
		s := newTestServer(t, func(c *ServerConfig) {
			c.TLSConfig = config.TLSConfig{Mode: config.TLSModeServer, CertFile: certFile}
		})
		_, err := s.buildTLSConfig()
		assert.Error(t, err)
	})
}
