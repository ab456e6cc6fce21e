package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"atslens/internal/common"
	"atslens/internal/config"
	"atslens/internal/errors"
	"atslens/internal/utils"
)

// Inbox analyzes documents dropped into a directory and writes one report
// per document into an outbox directory. Sidecar fields and diagnostics
// files next to a document are picked up, and changing a sidecar
// re-analyzes its document.
type Inbox struct {
	runner   *common.Runner
	cfg      config.WatchConfig
	workers  int
	logger   *errors.Logger
	onReport func(document, report string, err error)
}

// NewInbox creates an inbox processor. workers bounds concurrent analyses;
// zero means GOMAXPROCS.
func NewInbox(cfg config.WatchConfig, runner *common.Runner, workers int, logger *errors.Logger) *Inbox {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Inbox{runner: runner, cfg: cfg, workers: workers, logger: logger}
}

// Match reports whether path is something the inbox reacts to
func (in *Inbox) Match(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || filepath.Dir(filepath.Clean(path)) != filepath.Clean(in.cfg.Inbox) {
		return false
	}
	if utils.IsSidecarFile(path) {
		ext := utils.GetFileExtension(path)
		return ext == ".json" || ext == ".yaml" || ext == ".yml"
	}
	return utils.IsDocumentFile(path)
}

// Run processes the documents already in the inbox, then watches it until
// ctx is cancelled
func (in *Inbox) Run(ctx context.Context) error {
	for _, dir := range []string{in.cfg.Inbox, in.cfg.Outbox} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeDirCreateFailed,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if _, err := in.ProcessExisting(ctx); err != nil {
		return err
	}

	w := New(in.cfg.Debounce, in.Match, func(paths []string) {
		in.ProcessBatch(ctx, paths)
	}, in.logger)
	if err := w.Start(in.cfg.Inbox); err != nil {
		return err
	}

	in.logger.Info("Watching inbox", "inbox", in.cfg.Inbox, "outbox", in.cfg.Outbox, "format", in.cfg.Format)
	<-ctx.Done()
	return w.Stop()
}

// ProcessExisting analyzes every document in the inbox whose report is
// missing or older than the document or its sidecars. It returns the
// number of documents analyzed.
func (in *Inbox) ProcessExisting(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(in.cfg.Inbox)
	if err != nil {
		return 0, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read inbox: %s", in.cfg.Inbox), err)
	}

	var stale []string
	for _, e := range entries {
		path := filepath.Join(in.cfg.Inbox, e.Name())
		if e.IsDir() || !in.Match(path) || utils.IsSidecarFile(path) {
			continue
		}
		if in.upToDate(path) {
			in.logger.Debug("Report is up to date", "file", path)
			continue
		}
		stale = append(stale, path)
	}
	return in.ProcessBatch(ctx, stale), nil
}

// ProcessBatch analyzes the documents behind paths, at most workers at a
// time. Failures are logged and do not stop the batch. It returns the
// number of documents analyzed.
func (in *Inbox) ProcessBatch(ctx context.Context, paths []string) int {
	docs := in.documents(paths)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	results := make([]bool, len(docs))
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = in.process(gctx, doc) == nil
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}

func (in *Inbox) process(ctx context.Context, doc string) error {
	report := common.OutputPath(in.cfg.Outbox, doc, in.cfg.Format)
	err := in.runner.Run(ctx, common.AnalyzeRequest{Document: doc}, common.CommandConfig{
		OutputFile:   report,
		OutputFormat: in.cfg.Format,
	})
	if err != nil {
		in.logger.LogError(err, "Inbox analysis failed", "file", doc)
	}
	if in.onReport != nil {
		in.onReport(doc, report, err)
	}
	return err
}

// documents maps changed paths to the distinct documents to analyze
func (in *Inbox) documents(paths []string) []string {
	seen := make(map[string]bool)
	var docs []string
	for _, p := range paths {
		doc := p
		if utils.IsSidecarFile(p) {
			doc = documentFor(p)
			if doc == "" {
				in.logger.Debug("Sidecar without document", "file", p)
				continue
			}
		}
		if !seen[doc] {
			seen[doc] = true
			docs = append(docs, doc)
		}
	}
	return docs
}

// documentFor finds the document a sidecar belongs to
func documentFor(sidecar string) string {
	base := filepath.Base(sidecar)
	lower := strings.ToLower(base)
	var stem string
	for _, kind := range []string{".fields.", ".diagnostics."} {
		if i := strings.LastIndex(lower, kind); i > 0 {
			stem = base[:i]
			break
		}
	}
	if stem == "" {
		return ""
	}
	for _, ext := range utils.DocumentExtensions {
		candidate := filepath.Join(filepath.Dir(sidecar), stem+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// upToDate reports whether doc's report is newer than doc and its sidecars
func (in *Inbox) upToDate(doc string) bool {
	report, err := os.Stat(common.OutputPath(in.cfg.Outbox, doc, in.cfg.Format))
	if err != nil {
		return false
	}
	inputs := []string{doc, utils.Sidecar(doc, "fields"), utils.Sidecar(doc, "diagnostics")}
	for _, p := range inputs {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.ModTime().After(report.ModTime()) {
			return false
		}
	}
	return true
}
