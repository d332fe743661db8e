package domain

// IngestState is a state of the ingestion state machine.
//
//	Received -> Parsed -> Chunked -> Embedded -> Persisted
//
// Any transition may instead end in Failed.
type IngestState int

// Ingestion states.
const (
	StateReceived IngestState = iota
	StateParsed
	StateChunked
	StateEmbedded
	StatePersisted
	StateFailed
)

// String returns the state name.
func (s IngestState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateParsed:
		return "parsed"
	case StateChunked:
		return "chunked"
	case StateEmbedded:
		return "embedded"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for Persisted and Failed.
func (s IngestState) IsTerminal() bool {
	return s == StatePersisted || s == StateFailed
}

// RawDocument represents uploaded bytes before text extraction.
type RawDocument struct {
	// Filename is the original file name, used for extension-based detection.
	Filename string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// IngestRequest is the input of a single ingestion.
type IngestRequest struct {
	// Filename is the original file name.
	Filename string

	// Content is the raw file bytes.
	Content []byte

	// ContentType is the MIME type. Empty means detect from the filename.
	ContentType string

	// UserID owns the document. Empty means DefaultUserID.
	UserID string

	// Chunking overrides the default chunk window.
	Chunking *ChunkingOptions
}

// IngestResult is the output of a successful ingestion.
type IngestResult struct {
	// DocumentID is the id assigned to the document.
	DocumentID string

	// ChunksIndexed is the number of chunks persisted.
	ChunksIndexed int

	// Warnings lists non-fatal degradations in the order they occurred.
	Warnings []string

	// State is the terminal state reached.
	State IngestState
}
