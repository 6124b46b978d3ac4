package pipeline

import (
	"context"
	"errors"

	"github.com/octobees/placeharvest/internal/places"
)

// FailureKind classifies why an identifier produced no record.
type FailureKind string

const (
	// FailurePermanent marks errors that retrying cannot fix.
	FailurePermanent FailureKind = "permanent"

	// FailureExhausted marks transient errors that outlived the retry budget.
	FailureExhausted FailureKind = "exhausted"

	// FailureCancelled marks identifiers abandoned because the run was
	// cancelled before or while they were being fetched.
	FailureCancelled FailureKind = "cancelled"
)

// Failure is the per-identifier failure half of a fetch outcome.
type Failure struct {
	PlaceID string
	Kind    FailureKind
	Err     error
}

func classifyFailure(id string, err error) Failure {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Failure{PlaceID: id, Kind: FailureCancelled, Err: err}
	}

	var detailErr *places.DetailError
	if errors.As(err, &detailErr) && detailErr.Exhausted {
		return Failure{PlaceID: id, Kind: FailureExhausted, Err: err}
	}
	return Failure{PlaceID: id, Kind: FailurePermanent, Err: err}
}
