package normalisers

import (
	"github.com/custodia-labs/docrag/internal/normalisers/docx"
	"github.com/custodia-labs/docrag/internal/normalisers/eml"
	"github.com/custodia-labs/docrag/internal/normalisers/html"
	"github.com/custodia-labs/docrag/internal/normalisers/markdown"
	"github.com/custodia-labs/docrag/internal/normalisers/pdf"
	"github.com/custodia-labs/docrag/internal/normalisers/plaintext"
)

// DefaultRegistry returns a registry with every built-in normaliser.
func DefaultRegistry() *Registry {
	return NewRegistry(
		pdf.New(),
		docx.New(),
		html.New(),
		markdown.New(),
		eml.New(),
		plaintext.New(),
	)
}
