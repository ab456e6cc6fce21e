package config

import (
	"fmt"
	"sync"
	"time"

	"atslens/internal/errors"
)

// SecretWatcher polls Vault for new versions of the server API key and
// parser token secrets and hands rotated values to the registered callbacks.
// Only secrets whose KVv2 version grew since the last poll are applied.
type SecretWatcher struct {
	mu sync.RWMutex

	src          SecretSource
	paths        VaultSecrets
	pollInterval time.Duration
	logger       *errors.Logger

	onAPIKeys     func([]string)
	onParserToken func(string)

	versions map[string]int64
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// NewSecretWatcher creates a watcher over the secret paths of cfg
func NewSecretWatcher(src SecretSource, cfg VaultConfig, logger *errors.Logger) *SecretWatcher {
	if logger == nil {
		logger = errors.Discard()
	}
	return &SecretWatcher{
		src:          src,
		paths:        cfg.Secrets,
		pollInterval: cfg.Watch.PollInterval,
		logger:       logger,
		versions:     make(map[string]int64),
	}
}

// OnAPIKeys registers the callback for rotated server API keys
func (w *SecretWatcher) OnAPIKeys(fn func([]string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAPIKeys = fn
}

// OnParserToken registers the callback for a rotated parser token
func (w *SecretWatcher) OnParserToken(fn func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onParserToken = fn
}

// Start records the current secret versions and begins polling
func (w *SecretWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("secret watcher is already running")
	}
	if w.pollInterval <= 0 {
		return fmt.Errorf("secret watcher poll interval must be positive")
	}

	// Startup already applied these versions
	for _, path := range w.watchedPaths() {
		if secret, err := w.src.GetSecretV2(path); err == nil {
			w.versions[path] = secret.Version
		} else {
			w.logger.LogError(err, "Failed to read Vault secret version", "path", path)
		}
	}

	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.pollLoop(w.stopChan, w.done)

	w.logger.Info("Vault secret watcher started", "paths", w.watchedPaths(), "poll_interval", w.pollInterval)
	return nil
}

// Stop stops polling and waits for an in-flight poll to finish
func (w *SecretWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("Vault secret watcher stopped")
	return nil
}

// Status returns the watcher state for health reporting
func (w *SecretWatcher) Status() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	versions := make(map[string]int64, len(w.versions))
	for k, v := range w.versions {
		versions[k] = v
	}
	return map[string]any{
		"running":       w.running,
		"poll_interval": w.pollInterval.String(),
		"versions":      versions,
	}
}

func (w *SecretWatcher) watchedPaths() []string {
	var paths []string
	for _, p := range []string{w.paths.APIKeys, w.paths.ParserToken} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (w *SecretWatcher) pollLoop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-stop:
			return
		}
	}
}

// poll checks every watched secret once and returns how many were applied
func (w *SecretWatcher) poll() int {
	applied := 0
	if w.paths.APIKeys != "" {
		if raw, ok := w.changed(w.paths.APIKeys, "keys"); ok {
			keys := splitList(raw)
			w.mu.RLock()
			fn := w.onAPIKeys
			w.mu.RUnlock()
			switch {
			case len(keys) == 0:
				// An empty rotation would silently disable authentication
				w.logger.Warn("Rotated API key secret is empty, keeping current keys", "path", w.paths.APIKeys)
			case fn != nil:
				fn(keys)
				applied++
				w.logger.Info("API keys rotated from Vault", "count", len(keys))
			}
		}
	}
	if w.paths.ParserToken != "" {
		if token, ok := w.changed(w.paths.ParserToken, "token"); ok && token != "" {
			w.mu.RLock()
			fn := w.onParserToken
			w.mu.RUnlock()
			if fn != nil {
				fn(token)
				applied++
				w.logger.Info("Parser token rotated from Vault")
			}
		}
	}
	return applied
}

// changed reads path and returns its key field when the version grew
func (w *SecretWatcher) changed(path, key string) (string, bool) {
	secret, err := w.src.GetSecretV2(path)
	if err != nil {
		w.logger.LogError(err, "Failed to check Vault for updates", "path", path)
		return "", false
	}

	w.mu.Lock()
	if secret.Version <= w.versions[path] {
		w.mu.Unlock()
		return "", false
	}
	w.versions[path] = secret.Version
	w.mu.Unlock()

	value, err := stringField(secret, path, key)
	if err != nil {
		w.logger.LogError(err, "Rotated Vault secret is malformed", "path", path)
		return "", false
	}
	return value, true
}
