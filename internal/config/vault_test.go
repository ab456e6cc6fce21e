package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVault map[string]*VaultSecret

func (f fakeVault) GetSecretV2(path string) (*VaultSecret, error) {
	s, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return s, nil
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64", input: int64(42), expected: 42},
		{name: "int", input: 7, expected: 7},
		{name: "float64", input: float64(42), expected: 42},
		{name: "string", input: "42", expected: 42},
		{name: "bad string", input: "forty-two", expectError: true},
		{name: "missing", input: nil, expectError: true},
		{name: "unsupported", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersion(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodeKV2(t *testing.T) {
	_, err := decodeKV2(nil, "secret/data/x")
	assert.ErrorContains(t, err, "secret not found")

	_, err = decodeKV2(&api.Secret{Data: map[string]any{"keys": "a"}}, "secret/data/x")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = decodeKV2(&api.Secret{Data: map[string]any{"data": map[string]any{}}}, "secret/data/x")
	assert.ErrorContains(t, err, "missing 'metadata' field")

	s, err := decodeKV2(&api.Secret{Data: map[string]any{
		"data":     map[string]any{"token": "abc"},
		"metadata": map[string]any{"version": "3"},
	}}, "secret/data/x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Version)
	assert.Equal(t, "abc", s.Data["token"])
}

func TestResolveVaultToken(t *testing.T) {
	token, err := resolveVaultToken(VaultConfig{Token: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", token)

	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0600))
	token, err = resolveVaultToken(VaultConfig{TokenFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	_, err = resolveVaultToken(VaultConfig{})
	assert.ErrorContains(t, err, "vault token is required")
}

func TestApplySecrets(t *testing.T) {
	src := fakeVault{
		"kv/data/keys":   {Data: map[string]any{"keys": "k1, k2,,k3"}, Version: 1},
		"kv/data/parser": {Data: map[string]any{"token": "parser-secret"}, Version: 1},
		"kv/data/tls":    {Data: map[string]any{"cert": "CERT", "key": "KEY"}, Version: 4},
	}
	cfg := &Config{
		Server: ServerConfig{TLS: TLSConfig{CertFile: "/old/cert.pem", KeyFile: "/old/key.pem", CAFile: "/ca.pem"}},
		Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:     "kv/data/keys",
			ParserToken: "kv/data/parser",
			TLSCerts:    "kv/data/tls",
		}},
	}

	require.NoError(t, applySecrets(cfg, src, nil))
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "parser-secret", cfg.Parser.Token)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Empty(t, cfg.Server.TLS.KeyFile)
	assert.Equal(t, "/ca.pem", cfg.Server.TLS.CAFile, "CA file kept when Vault has no CA")
}

func TestApplySecretsErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{APIKeys: "kv/data/none"}}}
		assert.ErrorContains(t, applySecrets(cfg, fakeVault{}, nil), "failed to load API keys")
	})

	t.Run("wrong field type", func(t *testing.T) {
		src := fakeVault{"kv/data/parser": {Data: map[string]any{"token": 12}}}
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{ParserToken: "kv/data/parser"}}}
		assert.ErrorContains(t, applySecrets(cfg, src, nil), "is not a string")
	})

	t.Run("nothing configured", func(t *testing.T) {
		assert.NoError(t, applySecrets(&Config{}, fakeVault{}, nil))
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{Parser: ParserConfig{Token: "keep"}}
	require.NoError(t, ApplyVaultSecrets(cfg, nil))
	assert.Equal(t, "keep", cfg.Parser.Token)
}
