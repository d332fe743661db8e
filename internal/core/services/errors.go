package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/logger"
)

// stageError builds a caller-safe StageError for a failed external call.
// The raw cause is logged and kept in the chain but not rendered.
// A deadline that the adapter did not classify is marked as a timeout.
func stageError(stage domain.Stage, kind error, what string, cause error) *domain.StageError {
	if errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, domain.ErrTimeout) {
		cause = fmt.Errorf("%w: %w", domain.ErrTimeout, cause)
	}
	logger.Debugw("stage failed", "stage", string(stage), "cause", fmt.Sprint(cause))
	return domain.NewStageError(stage, kind, describe(what, cause), cause)
}

// describe renders what failed without exposing transport details.
func describe(what string, err error) string {
	switch {
	case err == nil:
		return what + " failed"
	case errors.Is(err, context.Canceled):
		return what + " cancelled"
	case errors.Is(err, domain.ErrTimeout):
		return what + " timed out"
	case errors.Is(err, domain.ErrRateLimited):
		return what + " rate limited"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return what + " returned vectors of the wrong dimension"
	case errors.Is(err, domain.ErrNotFound):
		return what + " not found"
	default:
		return what + " failed"
	}
}
