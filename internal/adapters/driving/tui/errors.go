package tui

import "errors"

// ErrMissingRagService is returned when the RAG service is not provided.
var ErrMissingRagService = errors.New("tui: rag service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
