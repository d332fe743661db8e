package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates no normaliser handles a content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrParse indicates a document could not be turned into text.
	// Fatal to that ingestion.
	ErrParse = errors.New("document could not be parsed")

	// ErrEmbedding indicates the embedding provider was unreachable or
	// returned vectors that do not line up with the input.
	ErrEmbedding = errors.New("embedding failed")

	// ErrPersistence indicates the vector store write failed.
	// The store guarantees nothing of the document was written.
	ErrPersistence = errors.New("persistence failed")

	// ErrQueryTooShort indicates a query with fewer than two characters after trimming.
	ErrQueryTooShort = errors.New("query too short")

	// ErrMetadataInsert indicates the metadata row could not be written.
	// Ingestion continues with a fallback id; this is only ever reported as a warning.
	ErrMetadataInsert = errors.New("metadata insert failed")

	// ErrSearch indicates the vector store could not run a similarity search.
	ErrSearch = errors.New("vector search failed")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("answer generation failed")

	// Capability Errors.

	// ErrTimeout indicates an external call exceeded its deadline.
	// Callers may retry.
	ErrTimeout = errors.New("timed out")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer synthesis and summaries are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrDimensionMismatch indicates a vector whose size differs from the store's.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Stage names the pipeline step an error occurred in.
type Stage string

// Pipeline stages.
const (
	StageParse    Stage = "parse"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StagePersist  Stage = "persist"
	StageValidate Stage = "validate"
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
	StageLoad     Stage = "load"
)

// StageError is a fatal pipeline failure.
//
// Error() only renders the stage and a caller-safe message. The underlying
// cause (transport errors, driver errors) stays reachable through errors.Is
// and errors.As but is never part of the message.
type StageError struct {
	// Stage is where the pipeline stopped.
	Stage Stage

	// Kind is one of the domain sentinels (ErrParse, ErrEmbedding, ...).
	Kind error

	// Message is the caller-safe description. Defaults to Kind's text.
	Message string

	// Cause is the underlying error.
	Cause error
}

// NewStageError creates a StageError.
func NewStageError(stage Stage, kind error, message string, cause error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: message, Cause: cause}
}

// Error returns the stage-qualified message.
func (e *StageError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Stage, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Retryable reports whether retrying the same request may succeed.
func (e *StageError) Retryable() bool {
	return IsRetryable(e)
}

// IsRetryable reports whether err is transient: a timeout or a rate limit.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// FailedStage returns the stage of a StageError in err's chain, or "".
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
