// Package sink persists the aggregated record set to the configured outputs.
package sink

import (
	"context"
	"fmt"

	"github.com/octobees/placeharvest/internal/entity"
)

// Sink consumes the final aggregated record list. Each configured sink is
// invoked once per run; a failing sink never affects the others.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []entity.BusinessRecord) error
}

// SinkError reports which sink failed. Already-fetched records stay valid.
type SinkError struct {
	Sink  string
	Cause error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Cause)
}

// Unwrap supports errors.Is/As chains.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

// WriteAll invokes every sink with the record list and returns one SinkError
// per failing sink.
func WriteAll(ctx context.Context, sinks []Sink, records []entity.BusinessRecord) []error {
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Cause: err})
		}
	}
	return errs
}
