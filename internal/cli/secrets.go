package cli

import (
	"fmt"

	"atslens/internal/config"
	"atslens/internal/errors"
	"atslens/internal/fields"
)

// watchSecrets starts a Vault watcher that rotates API keys through setKeys
// and the parser token on parser. Either target may be nil. The returned
// func stops the watcher and is safe to call when nothing was started.
func watchSecrets(cfg *config.Config, setKeys func([]string), parser *fields.Client, logger *errors.Logger) (func(), error) {
	if !cfg.Vault.Enabled || !cfg.Vault.Watch.Enabled {
		return func() {}, nil
	}
	client, err := config.NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client for secret watcher: %w", err)
	}
	return startSecretWatcher(client, cfg.Vault, setKeys, parser, logger)
}

func startSecretWatcher(src config.SecretSource, cfg config.VaultConfig, setKeys func([]string), parser *fields.Client, logger *errors.Logger) (func(), error) {
	w := config.NewSecretWatcher(src, cfg, logger)
	if setKeys != nil {
		w.OnAPIKeys(setKeys)
	}
	if parser != nil {
		w.OnParserToken(parser.SetToken)
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return func() { _ = w.Stop() }, nil
}
