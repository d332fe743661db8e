// Package sanitise removes characters that break chunking and storage from extracted text.
package sanitise

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Processor strips NUL bytes, control characters other than newline,
// carriage return and tab, and the Unicode replacement character.
// It rewrites doc.Content and passes chunks through unchanged.
type Processor struct{}

// New creates a sanitise processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sanitise"
}

// Process cleans doc.Content in place.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	doc.Content = Text(doc.Content)
	return chunks, nil
}

// Text returns s without NUL, control characters (except \n, \r, \t) and U+FFFD.
func Text(s string) string {
	if strings.IndexFunc(s, drop) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if drop(r) {
			return -1
		}
		return r
	}, s)
}

func drop(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return false
	case unicode.ReplacementChar:
		return true
	}
	return unicode.IsControl(r)
}
