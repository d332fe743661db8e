// Package chunker provides a fixed-size character window chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits document content into overlapping windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// Returns an error wrapping domain.ErrInvalidInput when the overlap is not
// smaller than the chunk size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidInput, p.overlap, p.chunkSize)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window width.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Window resolves the chunk size and overlap for a per-document override.
// An inherited overlap is reduced to fit a smaller overridden size; an
// explicit overlap is used as given and validated by Split.
func (p *Processor) Window(opts *domain.ChunkingOptions) (size, overlap int) {
	size, overlap = p.chunkSize, p.overlap
	if opts == nil {
		return size, overlap
	}
	if opts.Size > 0 {
		size = opts.Size
	}
	if opts.Overlap != nil {
		return size, *opts.Overlap
	}
	if overlap >= size {
		overlap = size - 1
	}
	return size, overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// doc.Chunking, when set, overrides the configured window for this document.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	size, overlap := p.Window(doc.Chunking)

	windows, err := Split(doc.Content, size, overlap)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	owner := doc.Owner()
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Text:       w.Text,
			Start:      w.Start,
			End:        w.End,
			UserID:     owner,
			Filename:   doc.Filename,
		})
	}

	return chunks, nil
}
