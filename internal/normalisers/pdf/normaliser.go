// Package pdf extracts text from PDF uploads with github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the PDF content type.
const MIMEType = "application/pdf"

// ErrEncrypted is returned for password-protected PDFs.
var ErrEncrypted = errors.New("pdf is encrypted")

// PageExtractor returns the text of each page, in page order.
// A page whose text cannot be read is reported in failed by its 1-based number.
type PageExtractor interface {
	Extract(ctx context.Context, data []byte) (pages []string, failed []int, err error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by the pure-Go extractor.
func New() *Normaliser {
	return &Normaliser{extractor: readerExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
func NewWithExtractor(extractor PageExtractor) *Normaliser {
	return &Normaliser{extractor: extractor}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page.
// Pages are separated by a blank line. Unreadable pages are skipped with a
// warning; a file with no readable structure at all is a parse error.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, failed, err := n.extractor.Extract(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
	}

	var warnings []string
	if len(failed) > 0 {
		warnings = append(warnings, fmt.Sprintf("could not read text from %d of %d PDF page(s): %s",
			len(failed), len(pages)+len(failed), joinInts(failed)))
	}

	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 && len(pages) > 0 {
		warnings = append(warnings, "PDF has no text layer; scanned pages are not OCRed")
	}

	return &driven.NormaliseResult{
		Content:  strings.Join(kept, "\n\n"),
		MIMEType: MIMEType,
		Warnings: warnings,
	}, nil
}

// readerExtractor reads pages with ledongthuc/pdf.
type readerExtractor struct{}

func (readerExtractor) Extract(ctx context.Context, data []byte) (pages []string, failed []int, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, failed, err = nil, nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, nil, errors.New("missing %PDF header")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, nil, ErrEncrypted
		}
		return nil, nil, err
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			failed = append(failed, i)
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			failed = append(failed, i)
			continue
		}
		pages = append(pages, text)
	}
	return pages, failed, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
