package places

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted is wrapped into a DetailError once the fetcher has used
// up its attempt budget.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// SearchError indicates a failed search or geocode call against the provider.
type SearchError struct {
	Status string
	Cause  error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("places: search failed (status %s): %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("places: search failed: %v", e.Cause)
}

// Unwrap supports errors.Is/As chains.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// DetailError indicates a failed detail lookup for one place identifier.
// Transient errors are worth retrying; Exhausted marks that the fetcher's
// retry budget ran out.
type DetailError struct {
	PlaceID   string
	Status    string
	Transient bool
	Exhausted bool
	Cause     error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Exhausted {
		return fmt.Sprintf("places: detail lookup for %s failed (%s, retries exhausted): %v", e.PlaceID, kind, e.Cause)
	}
	return fmt.Sprintf("places: detail lookup for %s failed (%s): %v", e.PlaceID, kind, e.Cause)
}

// Unwrap supports errors.Is/As chains.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is a detail error worth retrying.
func IsTransient(err error) bool {
	var detailErr *DetailError
	if errors.As(err, &detailErr) {
		return detailErr.Transient
	}
	return false
}
