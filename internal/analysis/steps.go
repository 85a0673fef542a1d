package analysis

import (
	"math"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// Summary describes how the step size evolved over a trajectory.
type Summary struct {
	Accepted    int
	Doublings   int // next step exactly twice the previous one
	Shrinks     int // next step smaller than the previous one
	MinStep     float64
	MaxStep     float64
	MeanStep    float64
	MaxError    float64
	FinalTime   float64
	Evaluations int64
	// EvalsPerStep is the average number of derivative calls per accepted
	// step. It equals the cost of one attempt when no step was rejected.
	EvalsPerStep float64
}

// RejectionOverhead is the share of evaluations spent on rejected attempts,
// given the cost of a single attempt.
func RejectionOverhead(s Summary, perAttempt int) float64 {
	if s.Evaluations <= 0 || perAttempt <= 0 {
		return 0
	}
	wasted := s.Evaluations - int64(s.Accepted)*int64(perAttempt)
	if wasted <= 0 {
		return 0
	}
	return float64(wasted) / float64(s.Evaluations)
}

// Summarize ignores the initial record (Step 0) except as the starting point
// for step-size comparisons.
func Summarize(records []dynamo.Record) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}

	last := records[len(records)-1]
	s.FinalTime = last.Time
	s.Evaluations = last.Evaluations

	sum := 0.0
	prev := records[0].StepSize
	for i, rec := range records {
		if i == 0 && rec.Step == 0 {
			continue
		}
		s.Accepted++
		sum += rec.StepSize
		if s.Accepted == 1 || rec.StepSize < s.MinStep {
			s.MinStep = rec.StepSize
		}
		if rec.StepSize > s.MaxStep {
			s.MaxStep = rec.StepSize
		}
		if rec.Error > s.MaxError {
			s.MaxError = rec.Error
		}
		if i > 0 {
			switch {
			case rec.StepSize == 2*prev:
				s.Doublings++
			case rec.StepSize < prev:
				s.Shrinks++
			}
		}
		prev = rec.StepSize
	}

	if s.Accepted > 0 {
		s.MeanStep = sum / float64(s.Accepted)
		s.EvalsPerStep = float64(s.Evaluations) / float64(s.Accepted)
	}
	return s
}

// GlobalError is the largest Euclidean distance between the trajectory and
// the closed-form solution of sys, measured at every record.
func GlobalError(records []dynamo.Record, sys dynamo.Analytic) float64 {
	if len(records) == 0 {
		return 0
	}
	t0 := records[0].Time
	y0 := records[0].State

	worst := 0.0
	for _, rec := range records[1:] {
		exact := sys.Solution(t0, y0, rec.Time)
		worst = math.Max(worst, rec.State.Sub(exact).Norm())
	}
	return worst
}

// EnergyDrift is |E(final) - E(initial)| / |E(initial)|, or the absolute
// drift when the initial energy is zero.
func EnergyDrift(records []dynamo.Record, sys dynamo.Hamiltonian) float64 {
	if len(records) < 2 {
		return 0
	}
	e0 := sys.Energy(records[0].State)
	e1 := sys.Energy(records[len(records)-1].State)
	if e0 == 0 {
		return math.Abs(e1)
	}
	return math.Abs(e1-e0) / math.Abs(e0)
}
