// Package mcp provides an MCP (Model Context Protocol) server adapter for docrag.
// It lets AI assistants ingest files and ask questions about them.
package mcp

import "errors"

// ErrMissingRagService is returned when the rag service is not provided.
var ErrMissingRagService = errors.New("mcp: rag service is required")
