package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// genericMIMETypes carry no format information and trigger extension lookup.
var genericMIMETypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
	"application/x-download":   true,
}

// Registry dispatches to the highest-priority normaliser for a MIME type,
// falling back to the file extension when the MIME type is missing or generic.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedMIMETypes returns every MIME type some normaliser handles.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Normalise extracts text with the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := baseMIMEType(raw.MIMEType)
	n := r.lookup(mimeType, raw.Filename)
	if n == nil && genericMIMETypes[mimeType] {
		// Last resort: sniff the bytes.
		mimeType = baseMIMEType(http.DetectContentType(raw.Content))
		n = r.lookup(mimeType, "")
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, raw.MIMEType)
	}

	logger.Debug("Normalising %q with %T", raw.Filename, n)
	return n.Normalise(ctx, raw)
}

func (r *Registry) lookup(mimeType, filename string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !genericMIMETypes[mimeType] {
		for _, n := range r.normalisers {
			for _, t := range n.SupportedMIMETypes() {
				if t == mimeType {
					return n
				}
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil
	}
	for _, n := range r.normalisers {
		for _, e := range n.SupportedExtensions() {
			if e == ext {
				return n
			}
		}
	}
	return nil
}

// baseMIMEType strips parameters such as charset.
func baseMIMEType(v string) string {
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mediaType
}
