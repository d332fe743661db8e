package ask

import "errors"

// ErrNoRagService indicates that no RAG service was provided.
var ErrNoRagService = errors.New("rag service is required")
