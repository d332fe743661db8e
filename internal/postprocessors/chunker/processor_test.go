package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.ChunkSize() != 1200 {
			t.Errorf("expected chunkSize 1200, got %d", p.ChunkSize())
		}
		if p.Overlap() != 200 {
			t.Errorf("expected overlap 200, got %d", p.Overlap())
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := mustNew(t, WithOverlap(100))
		if p.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(150))
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := mustNew(t)
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process(t *testing.T) {
	p := mustNew(t, WithChunkSize(4), WithOverlap(1))
	doc := &domain.Document{
		ID:       "doc-1",
		Filename: "letters.txt",
		Content:  "ABCDEFGHIJ",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d: expected document id doc-1, got %s", i, c.DocumentID)
		}
		if c.UserID != domain.DefaultUserID {
			t.Errorf("chunk %d: expected guest owner, got %s", i, c.UserID)
		}
		if c.Filename != "letters.txt" {
			t.Errorf("chunk %d: expected filename letters.txt, got %s", i, c.Filename)
		}
	}
	if chunks[1].Text != "DEFG" || chunks[1].Start != 3 || chunks[1].End != 7 {
		t.Errorf("unexpected second chunk %+v", chunks[1])
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := mustNew(t)
	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestProcessor_Process_Override(t *testing.T) {
	p := mustNew(t)
	doc := &domain.Document{
		ID:       "d",
		Content:  strings.Repeat("x", 100),
		Chunking: &domain.ChunkingOptions{Size: 10, Overlap: intPtr(0)},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 10 {
		t.Errorf("expected 10 chunks with override, got %d", len(chunks))
	}

	doc.Chunking = &domain.ChunkingOptions{Size: 10, Overlap: intPtr(10)}
	if _, err := p.Process(context.Background(), doc, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for invalid override, got %v", err)
	}
}

func intPtr(v int) *int {
	return &v
}

func TestProcessor_Window(t *testing.T) {
	p := mustNew(t)

	tests := []struct {
		name        string
		opts        *domain.ChunkingOptions
		wantSize    int
		wantOverlap int
	}{
		{"no override", nil, 1200, 200},
		{"size only keeps configured overlap", &domain.ChunkingOptions{Size: 800}, 800, 200},
		{"size below configured overlap", &domain.ChunkingOptions{Size: 150}, 150, 149},
		{"explicit zero overlap", &domain.ChunkingOptions{Overlap: intPtr(0)}, 1200, 0},
		{"explicit overlap only", &domain.ChunkingOptions{Overlap: intPtr(50)}, 1200, 50},
		{"both given", &domain.ChunkingOptions{Size: 400, Overlap: intPtr(40)}, 400, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, overlap := p.Window(tt.opts)
			if size != tt.wantSize || overlap != tt.wantOverlap {
				t.Errorf("Window() = (%d, %d), want (%d, %d)", size, overlap, tt.wantSize, tt.wantOverlap)
			}
		})
	}
}

func TestProcessor_Process_ExplicitZeroOverlapIsDisjoint(t *testing.T) {
	p := mustNew(t)
	doc := &domain.Document{
		ID:       "d",
		Content:  strings.Repeat("x", 3000),
		Chunking: &domain.ChunkingOptions{Overlap: intPtr(0)},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 disjoint chunks, got %d", len(chunks))
	}
	if chunks[1].Start != 1200 || chunks[2].Start != 2400 {
		t.Errorf("expected starts 1200 and 2400, got %d and %d", chunks[1].Start, chunks[2].Start)
	}
}

func TestProcessor_Process_SizeOnlyOverrideKeepsOverlap(t *testing.T) {
	p := mustNew(t)
	doc := &domain.Document{
		ID:       "d",
		Content:  strings.Repeat("x", 2000),
		Chunking: &domain.ChunkingOptions{Size: 800},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Start != 600 || chunks[0].End-chunks[1].Start != 200 {
		t.Errorf("expected 200 characters of overlap, got chunk 1 at %d after end %d", chunks[1].Start, chunks[0].End)
	}
}

func TestProcessor_Process_UsesOwner(t *testing.T) {
	p := mustNew(t)
	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d", UserID: "alice", Content: "hello"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].UserID != "alice" {
		t.Errorf("expected owner alice, got %s", chunks[0].UserID)
	}
}
