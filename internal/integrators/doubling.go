package integrators

import "github.com/san-kum/rkadapt/internal/dynamo"

// richardson is 2^4 - 1, the step-doubling correction for a fourth-order method.
const richardson = 15.0

// Attempt is the outcome of one trial step. It is discarded after the
// accept/reject decision.
type Attempt struct {
	Full  dynamo.State
	Half  dynamo.State
	Error float64
}

// StepDoubling estimates local error by comparing one step of h with two
// consecutive steps of h/2 over the same interval.
type StepDoubling struct {
	rk4 *RK4
}

func NewStepDoubling() *StepDoubling {
	return &StepDoubling{rk4: NewRK4()}
}

// Evaluations is the number of derivative calls made by one Estimate.
func (s *StepDoubling) Evaluations() int { return 3 * s.rk4.Evaluations() }

func (s *StepDoubling) Estimate(dyn dynamo.System, t float64, x dynamo.State, h float64) (Attempt, error) {
	full, err := s.rk4.Step(dyn, t, x, h)
	if err != nil {
		return Attempt{}, err
	}

	mid, err := s.rk4.Step(dyn, t, x, h/2)
	if err != nil {
		return Attempt{}, err
	}
	half, err := s.rk4.Step(dyn, t+h/2, mid, h/2)
	if err != nil {
		return Attempt{}, err
	}

	return Attempt{
		Full:  full,
		Half:  half,
		Error: half.Sub(full).Norm() / richardson,
	}, nil
}
