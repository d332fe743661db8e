// Package tui provides an interactive terminal user interface for docrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Rag answers questions about ingested documents.
	Rag driving.RagService

	// Document browses, summarises and deletes ingested documents.
	// Optional: the documents view reports it as unavailable when nil.
	Document driving.DocumentService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(rag driving.RagService, document driving.DocumentService) *Ports {
	return &Ports{
		Rag:      rag,
		Document: document,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Rag == nil {
		return ErrMissingRagService
	}
	return nil
}
