package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration runs.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNonPositiveTolerance indicates a tolerance that can never be met.
	ErrNonPositiveTolerance = errors.New("dynamo: tolerance must be positive and finite")

	// ErrInvalidInterval indicates start >= end or a non-finite bound.
	ErrInvalidInterval = errors.New("dynamo: start must be before end")

	// ErrInvalidStep indicates a non-positive initial step size.
	ErrInvalidStep = errors.New("dynamo: initial step size must be positive and finite")

	// ErrStepTooSmall indicates the step was halved below the configured minimum.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates a derivative or state of the wrong length.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: integration canceled by context")
)

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
