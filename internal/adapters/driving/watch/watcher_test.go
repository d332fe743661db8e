package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

type mockRag struct {
	mu       sync.Mutex
	requests []domain.IngestRequest
	err      error
}

func (m *mockRag) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestResult{
		DocumentID:    "doc-" + req.Filename,
		ChunksIndexed: 1,
		State:         domain.StatePersisted,
	}, nil
}

func (m *mockRag) Query(context.Context, domain.QueryRequest) (*domain.AnswerRecord, error) {
	return nil, errors.New("not used")
}

func (m *mockRag) calls() []domain.IngestRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.IngestRequest(nil), m.requests...)
}

func receive(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r, ok := <-results:
		require.True(t, ok, "results channel closed")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ingestion result")
	}
	return Result{}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"README", "text/plain"},
		{"notes.txt", "text/plain"},
		{"doc.md", "text/markdown"},
		{"DOC.MD", "text/markdown"},
		{"report.pdf", "application/pdf"},
		{"letter.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"page.html", "text/html"},
		{"mail.eml", "message/rfc822"},
		{"app.ts", "text/typescript"},
		{"data.json", "application/json"},
		{"file.zzzzunknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectContentType(tt.filename))
		})
	}

	t.Run("strips parameters", func(t *testing.T) {
		assert.NotContains(t, DetectContentType("style.css"), ";")
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"dir/.git/config", true},
		{"a/.b/file.txt", true},
		{"visible.txt", false},
		{"dir/sub/file.md", false},
		{"../sibling/file.txt", false},
		{"./file.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestWatcher_HiddenIsRelativeToRoot(t *testing.T) {
	w := New(&mockRag{}, "/home/user/.notes", Options{})

	assert.False(t, w.hidden("/home/user/.notes/today.md"))
	assert.True(t, w.hidden("/home/user/.notes/.draft.md"))
	assert.False(t, w.hidden("/home/user/.notes"))
}

func TestWatcher_Matches(t *testing.T) {
	w := New(&mockRag{}, "/tmp", Options{Patterns: []string{"*.md", "*.pdf"}})

	assert.True(t, w.matches("/tmp/a/notes.md"))
	assert.True(t, w.matches("/tmp/report.pdf"))
	assert.False(t, w.matches("/tmp/image.png"))

	all := New(&mockRag{}, "/tmp", Options{})
	assert.True(t, all.matches("/tmp/anything.bin"))
}

func TestDue(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"b":     now.Add(-2 * time.Second),
		"a":     now.Add(-3 * time.Second),
		"c":     now.Add(-2 * time.Second),
		"fresh": now.Add(-10 * time.Millisecond),
	}

	assert.Equal(t, []string{"a", "b", "c"}, due(pending, now, time.Second))
	assert.Empty(t, due(map[string]time.Time{}, now, time.Second))
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name      string
		setupFile bool
		setupDir  bool
		hidden    bool
		pattern   string
		operation fsnotify.Op
		ingest    bool
	}{
		{name: "create file", setupFile: true, operation: fsnotify.Create, ingest: true},
		{name: "write file", setupFile: true, operation: fsnotify.Write, ingest: true},
		{name: "remove file", operation: fsnotify.Remove},
		{name: "rename file", operation: fsnotify.Rename},
		{name: "chmod file", setupFile: true, operation: fsnotify.Chmod},
		{name: "create directory", setupDir: true, operation: fsnotify.Create},
		{name: "hidden file", hidden: true, operation: fsnotify.Create},
		{name: "pattern mismatch", setupFile: true, pattern: "*.pdf", operation: fsnotify.Write},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "test.txt")

			switch {
			case tt.setupDir:
				path = filepath.Join(dir, "sub")
				require.NoError(t, os.Mkdir(path, 0o755))
			case tt.hidden:
				path = filepath.Join(dir, ".hidden.txt")
				require.NoError(t, os.WriteFile(path, []byte("hidden"), 0o644))
			case tt.setupFile:
				require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
			}

			opts := Options{}
			if tt.pattern != "" {
				opts.Patterns = []string{tt.pattern}
			}
			w := New(&mockRag{}, dir, opts)

			got := w.handleFsEvent(nil, fsnotify.Event{Name: path, Op: tt.operation})

			if tt.ingest {
				assert.Equal(t, path, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestWatcher_Ingest(t *testing.T) {
	t.Run("sends file bytes with detected type", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "notes.md")
		require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0o644))
		rag := &mockRag{}
		w := New(rag, dir, Options{UserID: "alice"})

		result := w.ingest(context.Background(), path)

		require.NoError(t, result.Err)
		assert.Equal(t, "doc-notes.md", result.DocumentID)
		assert.Equal(t, 1, result.ChunksIndexed)
		calls := rag.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "notes.md", calls[0].Filename)
		assert.Equal(t, "text/markdown", calls[0].ContentType)
		assert.Equal(t, "alice", calls[0].UserID)
		assert.Equal(t, []byte("# Notes"), calls[0].Content)
	})

	t.Run("skips empty files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		rag := &mockRag{}

		result := New(rag, dir, Options{}).ingest(context.Background(), path)

		assert.NoError(t, result.Err)
		assert.Empty(t, result.DocumentID)
		assert.Empty(t, rag.calls())
	})

	t.Run("reports unreadable files", func(t *testing.T) {
		dir := t.TempDir()
		result := New(&mockRag{}, dir, Options{}).ingest(context.Background(), filepath.Join(dir, "gone.txt"))

		assert.ErrorIs(t, result.Err, domain.ErrInvalidInput)
	})

	t.Run("reports service errors", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))
		rag := &mockRag{err: domain.ErrEmbeddingUnavailable}

		result := New(rag, dir, Options{}).ingest(context.Background(), path)

		assert.ErrorIs(t, result.Err, domain.ErrEmbeddingUnavailable)
	})
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("ingests a new file", func(t *testing.T) {
		dir := t.TempDir()
		rag := &mockRag{}
		w := New(rag, dir, Options{Debounce: 20 * time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		defer w.Close()

		path := filepath.Join(dir, "new-file.txt")
		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(path, []byte("content"), 0o644)
		}()

		result := receive(t, results)
		require.NoError(t, result.Err)
		assert.Equal(t, path, result.Path)
		assert.Equal(t, "doc-new-file.txt", result.DocumentID)
	})

	t.Run("ingests files in new subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		w := New(&mockRag{}, dir, Options{Debounce: 20 * time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		defer w.Close()

		sub := filepath.Join(dir, "sub")
		require.NoError(t, os.Mkdir(sub, 0o755))
		// Give the loop time to add the new directory.
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("deep"), 0o644))

		result := receive(t, results)
		assert.Equal(t, "doc-deep.txt", result.DocumentID)
	})

	t.Run("collapses a burst of writes", func(t *testing.T) {
		dir := t.TempDir()
		rag := &mockRag{}
		w := New(rag, dir, Options{Debounce: 200 * time.Millisecond})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		defer w.Close()

		path := filepath.Join(dir, "burst.txt")
		for i := 0; i < 5; i++ {
			require.NoError(t, os.WriteFile(path, []byte("version"), 0o644))
			time.Sleep(10 * time.Millisecond)
		}

		receive(t, results)
		time.Sleep(300 * time.Millisecond)
		assert.Len(t, rag.calls(), 1)
	})

	t.Run("ingests existing files first", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".secret"), []byte("hidden"), 0o644))
		rag := &mockRag{}
		w := New(rag, dir, Options{Existing: true})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		defer w.Close()

		result := receive(t, results)
		assert.Equal(t, "doc-old.txt", result.DocumentID)
		assert.Len(t, rag.calls(), 1)
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		w := New(&mockRag{}, t.TempDir(), Options{})
		ctx, cancel := context.WithCancel(context.Background())

		results, err := w.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-results:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
		assert.NoError(t, w.Close())
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		w := New(&mockRag{}, "/non/existent/path", Options{})

		results, err := w.Watch(context.Background())

		assert.Nil(t, results)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("returns error for a file root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := New(&mockRag{}, path, Options{}).Watch(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("returns error when closed", func(t *testing.T) {
		w := New(&mockRag{}, t.TempDir(), Options{})
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		_, err := w.Watch(context.Background())

		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("requires a rag service", func(t *testing.T) {
		_, err := New(nil, t.TempDir(), Options{}).Watch(context.Background())

		assert.ErrorIs(t, err, ErrNoRagService)
	})
}
