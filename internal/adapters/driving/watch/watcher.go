// Package watch ingests files as they appear or change under a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrClosed is returned by Watch after Close.
	ErrClosed = errors.New("watch: watcher is closed")

	// ErrNoRagService is returned when the watcher has nothing to ingest with.
	ErrNoRagService = errors.New("watch: rag service is required")
)

// Options configures a Watcher.
type Options struct {
	// UserID owns every ingested document. Empty means guest.
	UserID string

	// Debounce collapses bursts of writes to the same file. Zero uses DefaultDebounce.
	Debounce time.Duration

	// Existing ingests the files already present before watching starts.
	Existing bool

	// Patterns restricts ingestion to base names matching any glob. Empty matches all.
	Patterns []string
}

// Result reports the outcome of ingesting one file.
type Result struct {
	Path          string
	DocumentID    string
	ChunksIndexed int
	Warnings      []string
	Err           error
}

// Watcher feeds created and modified files under a root directory into a RagService.
type Watcher struct {
	rag  driving.RagService
	root string
	opts Options

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a watcher for root.
func New(rag driving.RagService, root string, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{rag: rag, root: root, opts: opts}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Watch starts watching and returns a channel of ingestion results.
// The channel closes when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Result, error) {
	if w.rag == nil {
		return nil, ErrNoRagService
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	w.watcher = fw
	w.mu.Unlock()

	var existing []string
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Debug("watch: skipping %s: %v", path, walkErr)
			return nil
		}
		if w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		if w.opts.Existing && w.matches(path) {
			existing = append(existing, path)
		}
		return nil
	})
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}

	results := make(chan Result, 16)
	go w.loop(ctx, fw, existing, results)

	return results, nil
}

// Close stops the underlying watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, existing []string, results chan<- Result) {
	defer close(results)
	defer func() { _ = fw.Close() }()

	for _, path := range existing {
		if !w.send(ctx, results, w.ingest(ctx, path)) {
			return
		}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.opts.Debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if path := w.handleFsEvent(fw, event); path != "" {
				pending[path] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)

		case now := <-ticker.C:
			for _, path := range due(pending, now, w.opts.Debounce) {
				delete(pending, path)
				if !w.send(ctx, results, w.ingest(ctx, path)) {
					return
				}
			}
		}
	}
}

// handleFsEvent returns the path to ingest for an event, or "" when the
// event is ignored. New directories are added to the watch set.
func (w *Watcher) handleFsEvent(fw *fsnotify.Watcher, event fsnotify.Event) string {
	path := event.Name
	if w.hidden(path) {
		return ""
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return ""
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) && fw != nil {
				if err := fw.Add(path); err != nil {
					logger.Warn("watch: cannot watch %s: %v", path, err)
				}
			}
			return ""
		}
		if !w.matches(path) {
			return ""
		}
		return path

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		logger.Debug("watch: %s removed; indexed chunks are kept", path)
	}

	return ""
}

// ingest reads one file and hands it to the rag service.
func (w *Watcher) ingest(ctx context.Context, path string) Result {
	result := Result{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("%w: cannot read %s", domain.ErrInvalidInput, filepath.Base(path))
		return result
	}
	// Editors create files empty and fill them in a later write.
	if len(content) == 0 {
		logger.Debug("watch: skipping empty file %s", path)
		return result
	}

	logger.Debug("watch: ingesting %s (%d bytes)", path, len(content))
	res, err := w.rag.Ingest(ctx, domain.IngestRequest{
		Filename:    filepath.Base(path),
		Content:     content,
		ContentType: DetectContentType(path),
		UserID:      w.opts.UserID,
	})
	if err != nil {
		result.Err = err
		return result
	}

	result.DocumentID = res.DocumentID
	result.ChunksIndexed = res.ChunksIndexed
	result.Warnings = res.Warnings
	return result
}

// send delivers a result unless it is an empty-file skip. It returns false
// once ctx is done.
func (w *Watcher) send(ctx context.Context, results chan<- Result, r Result) bool {
	if r.DocumentID == "" && r.Err == nil {
		return ctx.Err() == nil
	}
	select {
	case results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	return isHidden(rel)
}

func (w *Watcher) matches(path string) bool {
	if len(w.opts.Patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range w.opts.Patterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// due returns the pending paths that have been quiet for at least d, oldest first.
func due(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var paths []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := pending[paths[i]], pending[paths[j]]
		if a.Equal(b) {
			return paths[i] < paths[j]
		}
		return a.Before(b)
	})
	return paths
}
