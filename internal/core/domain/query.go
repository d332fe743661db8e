package domain

// Query bounds.
const (
	// DefaultTopK is the number of chunks retrieved when a query does not say.
	DefaultTopK = 5

	// MaxTopK is the largest accepted top-k.
	MaxTopK = 20

	// MinQueryLength is the minimum trimmed query length in characters.
	MinQueryLength = 2
)

// SearchFilter scopes a similarity search. Empty fields do not filter.
type SearchFilter struct {
	// UserID restricts results to chunks owned by the user.
	UserID string

	// DocumentID restricts results to one document.
	DocumentID string
}

// ScoredChunk is a similarity search hit.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity (higher is more relevant).
	Score float64
}

// QueryRequest is the input of a question against the ingested documents.
type QueryRequest struct {
	// Text is the natural-language question.
	Text string

	// TopK is the number of chunks to retrieve. Zero means DefaultTopK.
	TopK int

	// UserID scopes retrieval to a user's documents. Empty means DefaultUserID.
	UserID string

	// DocumentID scopes retrieval to a single document.
	DocumentID string
}

// SourceChunk is a denormalised snapshot of a cited chunk.
type SourceChunk struct {
	// DocumentID is the owning document.
	DocumentID string `json:"document_id"`

	// ChunkID is the chunk's index within its document.
	ChunkID int `json:"chunk_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Score is the similarity score from retrieval.
	Score float64 `json:"score"`

	// Filename is the document's original filename, if known.
	Filename string `json:"filename,omitempty"`
}

// NewSourceChunk snapshots a scored chunk.
func NewSourceChunk(sc ScoredChunk) SourceChunk {
	return SourceChunk{
		DocumentID: sc.Chunk.DocumentID,
		ChunkID:    sc.Chunk.Index,
		Text:       sc.Chunk.Text,
		Score:      sc.Score,
		Filename:   sc.Chunk.Filename,
	}
}

// AnswerRecord is a generated answer with the sources it cites.
type AnswerRecord struct {
	// Answer is the generated text.
	Answer string `json:"answer"`

	// Sources are the cited chunks in rank order.
	Sources []SourceChunk `json:"sources"`
}
