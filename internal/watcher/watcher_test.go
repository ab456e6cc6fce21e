package watcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atslens/internal/common"
	"atslens/internal/config"
	"atslens/internal/engine"
	"atslens/internal/errors"
)

const layoutFixture = `{
  "pages": [
    {
      "width": 612,
      "height": 792,
      "blocks": [
        {"text": "Jane Doe", "bbox": [72, 90, 200, 110]},
        {"text": "EXPERIENCE", "bbox": [72, 200, 180, 215]},
        {"text": "Engineer, Acme", "bbox": [72, 230, 400, 245]}
      ]
    }
  ]
}`

type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func (b *batches) handle(paths []string) {
	b.mu.Lock()
	b.got = append(b.got, paths)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func TestWatcherDebouncesBatches(t *testing.T) {
	dir := t.TempDir()
	b := &batches{ch: make(chan struct{}, 4)}
	w := New(200*time.Millisecond, func(p string) bool { return strings.HasSuffix(p, ".pdf") }, b.handle, nil)
	require.NoError(t, w.Start(dir))
	defer func() { _ = w.Stop() }()
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(dir), "second start must fail")

	for _, name := range []string{"b.pdf", "a.pdf", "notes.txt", "a.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}

	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.got, 1)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, b.got[0])
}

func TestWatcherStop(t *testing.T) {
	w := New(0, nil, func([]string) {}, nil)
	assert.NoError(t, w.Stop(), "stopping an idle watcher is a no-op")
	require.NoError(t, w.Start(t.TempDir()))
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestWatcherMissingFileWatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	b := &batches{ch: make(chan struct{}, 1)}
	target := filepath.Join(dir, "server.crt")
	w := New(20*time.Millisecond, func(p string) bool { return p == target }, b.handle, nil)
	require.NoError(t, w.Start(target))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(target, []byte("pem"), 0600))
	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("file created after start was not reported")
	}
}

func newInbox(t *testing.T) (*Inbox, config.WatchConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.WatchConfig{
		Inbox:    filepath.Join(root, "inbox"),
		Outbox:   filepath.Join(root, "outbox"),
		Debounce: 30 * time.Millisecond,
		Format:   "json",
	}
	require.NoError(t, os.MkdirAll(cfg.Inbox, 0750))

	logger := errors.Discard()
	runner := &common.Runner{
		Engine: engine.New(engine.Options{Logger: logger}),
		Files:  common.NewFileProcessor(logger, 0),
		Output: common.NewOutputHandlerTo(&bytes.Buffer{}, logger),
		Logger: logger,
		Source: "watch",
	}
	return NewInbox(cfg, runner, 2, logger), cfg
}

func TestInboxMatch(t *testing.T) {
	in, cfg := newInbox(t)

	tests := []struct {
		name string
		want bool
	}{
		{"resume.pdf", true},
		{"layout.json", true},
		{"resume.fields.yaml", true},
		{"resume.diagnostics.json", true},
		{"resume.fields.txt", false},
		{".resume.pdf.123", false},
		{"notes.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, in.Match(filepath.Join(cfg.Inbox, tt.name)))
		})
	}
	assert.False(t, in.Match(filepath.Join(cfg.Outbox, "resume.json")))
}

func TestInboxProcessExisting(t *testing.T) {
	in, cfg := newInbox(t)
	doc := filepath.Join(cfg.Inbox, "jane.json")
	require.NoError(t, os.WriteFile(doc, []byte(layoutFixture), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Inbox, "jane.fields.json"), []byte(`{"name": "Jane Doe"}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Inbox, "broken.json"), []byte(`{"pages": "nope"}`), 0600))

	n, err := in.ProcessExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "broken fixture is logged and skipped")
	assert.FileExists(t, filepath.Join(cfg.Outbox, "jane.json"))

	n, err = in.ProcessExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "up to date reports are not rebuilt")
}

func TestInboxRunPicksUpNewDocuments(t *testing.T) {
	in, cfg := newInbox(t)
	reports := make(chan string, 4)
	in.onReport = func(doc, report string, err error) {
		// Reads can race the test's writes; a later write retries
		if err != nil {
			return
		}
		select {
		case reports <- report:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	want := filepath.Join(cfg.Outbox, "new.json")
	// The watcher may not be registered yet; keep touching the file until a report shows up
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case got := <-reports:
			assert.Equal(t, want, got)
			break loop
		case <-tick.C:
			require.NoError(t, os.WriteFile(filepath.Join(cfg.Inbox, "new.json"), []byte(layoutFixture), 0600))
		case <-deadline:
			t.Fatal("inbox did not analyze the new document")
		}
	}

	cancel()
	require.NoError(t, <-done)
	assert.FileExists(t, want)
}

func TestDocumentFor(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "Jane.Doe.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF"), 0600))

	assert.Equal(t, doc, documentFor(filepath.Join(dir, "Jane.Doe.fields.yaml")))
	assert.Equal(t, doc, documentFor(filepath.Join(dir, "Jane.Doe.diagnostics.json")))
	assert.Equal(t, "", documentFor(filepath.Join(dir, "other.fields.yaml")))
}
