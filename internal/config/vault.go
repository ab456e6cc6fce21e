package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"atslens/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
	Watch   VaultWatch   `mapstructure:"watch"`
}

// VaultWatch re-reads the API key and parser token secrets while the
// process runs, so rotations take effect without a restart
type VaultWatch struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// VaultSecrets are KVv2 paths. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys holds a "keys" field with comma-separated server API keys
	APIKeys string `mapstructure:"apiKeys"`
	// ParserToken holds a "token" field for the remote parser
	ParserToken string `mapstructure:"parserToken"`
	// TLSCerts holds PEM content in "cert", "key" and "ca" fields
	TLSCerts string `mapstructure:"tlsCerts"`
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// SecretSource is the part of VaultClient that secret loading depends on
type SecretSource interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient creates a Vault client and checks that the server is reachable
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", vaultConfig.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	return decodeKV2(secret, path)
}

// decodeKV2 unwraps the data and metadata envelope of a KVv2 read
func decodeKV2(secret *api.Secret, path string) (*VaultSecret, error) {
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersion(metadata["version"])
	if err != nil {
		return nil, fmt.Errorf("secret metadata at %s: %w", path, err)
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

func parseVersion(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing 'version' field")
	default:
		return 0, fmt.Errorf("unexpected type for version: %T", raw)
	}
}

// stringField returns a string value from a secret. Missing keys are an error.
func stringField(s *VaultSecret, path, key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return str, nil
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(config, client, logger)
}

func applySecrets(config *Config, src SecretSource, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.Discard()
	}
	paths := config.Vault.Secrets

	if paths.APIKeys != "" {
		secret, err := src.GetSecretV2(paths.APIKeys)
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		raw, err := stringField(secret, paths.APIKeys, "keys")
		if err != nil {
			return err
		}
		if keys := splitList(raw); len(keys) > 0 {
			config.Server.APIKeys = keys
			logger.Info("API keys loaded from Vault", "count", len(keys))
		} else {
			logger.Warn("No API keys found in Vault", "path", paths.APIKeys)
		}
	}

	if paths.ParserToken != "" {
		secret, err := src.GetSecretV2(paths.ParserToken)
		if err != nil {
			return fmt.Errorf("failed to load parser token from vault: %w", err)
		}
		token, err := stringField(secret, paths.ParserToken, "token")
		if err != nil {
			return err
		}
		if token != "" {
			config.Parser.Token = token
			logger.Info("Parser token loaded from Vault")
		}
	}

	if paths.TLSCerts != "" {
		secret, err := src.GetSecretV2(paths.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		loaded := 0
		for key, target := range map[string]*string{
			"cert": &config.Server.TLS.CertContent,
			"key":  &config.Server.TLS.KeyContent,
			"ca":   &config.Server.TLS.CAContent,
		} {
			if content, ok := secret.Data[key].(string); ok && content != "" {
				*target = content
				loaded++
			}
		}
		// Inline content replaces any configured files.
		if config.Server.TLS.CertContent != "" {
			config.Server.TLS.CertFile = ""
		}
		if config.Server.TLS.KeyContent != "" {
			config.Server.TLS.KeyFile = ""
		}
		if config.Server.TLS.CAContent != "" {
			config.Server.TLS.CAFile = ""
		}
		logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded, "version", secret.Version)
	}
	return nil
}
