package sampler

import (
	"errors"
	"fmt"

	"github.com/roach88/sketch/internal/engine"
)

// ProcessError reports the tick at which a Process call aborted.
//
// It wraps the underlying engine error, so engine.StatusCode and
// engine.IsInfiniteLoopError see through it.
type ProcessError struct {
	Tick        int   // Zero-based index of the failing tick within the block
	ComponentID int   // Offending component, or -1 if the cause names none
	Err         error // Underlying tick error
}

func newProcessError(tick int, err error) *ProcessError {
	pe := &ProcessError{Tick: tick, ComponentID: -1, Err: err}
	var le *engine.InfiniteLoopError
	if errors.As(err, &le) {
		pe.ComponentID = le.ComponentID
	}
	return pe
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("process aborted at tick %d: %v", e.Tick, e.Err)
}

// Unwrap returns the underlying tick error.
func (e *ProcessError) Unwrap() error {
	return e.Err
}
