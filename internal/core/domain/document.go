package domain

import "time"

// DefaultUserID is the owner assigned to documents and queries that carry no user.
const DefaultUserID = "guest"

// DocumentStatus tracks the processing lifecycle of a document's metadata row.
type DocumentStatus string

// Document processing states.
const (
	// DocumentProcessing means ingestion has started but chunks are not yet persisted.
	DocumentProcessing DocumentStatus = "processing"

	// DocumentCompleted means every chunk of the document is persisted.
	DocumentCompleted DocumentStatus = "completed"

	// DocumentFailed means ingestion stopped; StatusError carries the reason.
	DocumentFailed DocumentStatus = "failed"
)

// Document represents an ingested file.
// It is created at ingestion start and is immutable afterwards apart from its status.
type Document struct {
	// ID is the opaque identifier assigned at persistence time.
	// It is the foreign key for all chunks of the document.
	ID string

	// Filename is the original file name as supplied by the caller.
	Filename string

	// ContentType is the MIME type the bytes were parsed as.
	ContentType string

	// SizeBytes is the size of the raw upload.
	SizeBytes int64

	// UserID owns the document. Empty means DefaultUserID.
	UserID string

	// StoragePath is the opaque object storage reference of the raw bytes.
	StoragePath string

	// Status is the processing state of the document.
	Status DocumentStatus

	// StatusError holds the stage-qualified failure message when Status is failed.
	StatusError string

	// ChunkCount is the number of chunks persisted for the document.
	ChunkCount int

	// Content is the extracted text. It only lives for the duration of ingestion.
	Content string

	// Chunking overrides the chunker window for this document.
	Chunking *ChunkingOptions

	// CreatedAt is when ingestion started.
	CreatedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Owner returns the owning user, substituting DefaultUserID when unset.
func (d *Document) Owner() string {
	return OwnerOrDefault(d.UserID)
}

// OwnerOrDefault returns userID, or DefaultUserID when userID is empty.
func OwnerOrDefault(userID string) string {
	if userID == "" {
		return DefaultUserID
	}
	return userID
}

// Chunk represents a retrievable window of a document's extracted text.
// Chunks are immutable once created.
type Chunk struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the chunk id: unique within the document and its ordering position.
	Index int

	// Text is the window content. Never blank after trimming.
	Text string

	// Start is the offset of the first character in the document text.
	Start int

	// End is the offset one past the last character in the document text.
	End int

	// Embedding is the vector representation of Text.
	Embedding []float32

	// UserID is the owner of the document, copied for search filtering.
	UserID string

	// Filename is the document filename, copied so results need no second lookup.
	Filename string
}

// ChunkingOptions overrides the chunker window for a single document.
type ChunkingOptions struct {
	// Size is the window width in characters. Zero keeps the configured size.
	Size int

	// Overlap is the number of characters shared by consecutive windows.
	// Nil keeps the configured overlap, reduced below Size when needed.
	Overlap *int
}
