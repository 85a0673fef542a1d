package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/integrators"
)

// growthDivisor: an accepted error below tol/64 doubles the next step.
const growthDivisor = 64.0

type Estimator interface {
	Estimate(dyn dynamo.System, t float64, x dynamo.State, h float64) (integrators.Attempt, error)
}

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithEstimator(e Estimator) Option {
	return func(s *Simulator) { s.estimator = e }
}

// Simulator is the adaptive step controller. A Simulator may be reused for
// several sequential runs but is not safe for concurrent use.
type Simulator struct {
	dyn       dynamo.System
	estimator Estimator
	observers []dynamo.Observer
	logger    *slog.Logger
}

func New(dyn dynamo.System, opts ...Option) *Simulator {
	s := &Simulator{
		dyn:       dyn,
		estimator: integrators.NewStepDoubling(),
		observers: make([]dynamo.Observer, 0),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from cfg.Start to cfg.End starting at x0. Running out of
// budget is a normal outcome reported through Result.Status; the returned
// error is reserved for misconfiguration and evaluation failures. When a run
// fails after it started, the partial result up to the last accepted record
// is returned alongside the error with Status set to StatusFailed.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	budget := dynamo.NewBudget(cfg.MaxCalls)
	dyn := dynamo.Counted(s.dyn, budget, cfg.Granularity)

	x := x0.Clone()
	t := cfg.Start
	h := cfg.Step

	result := &dynamo.Result{}
	rec := dynamo.Record{Time: t, StepSize: h, State: x.Clone()}
	if err := s.emit(rec); err != nil {
		return nil, err
	}
	result.Final = rec

	for t < cfg.End && !budget.Exhausted() {
		if err := ctx.Err(); err != nil {
			return result, s.fail(result, budget, t, x, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err))
		}

		try, clamped := h, false
		if t+try >= cfg.End {
			try, clamped = cfg.End-t, true
		}

		att, err := s.estimator.Estimate(dyn, t, x, try)
		if err != nil {
			return result, s.fail(result, budget, t, x, err)
		}

		for att.Error > cfg.Tolerance {
			result.Stats.Rejected++
			s.logger.Debug("step rejected",
				"time", t,
				"step", try,
				"error", att.Error,
				"evaluations", budget.Used(),
			)

			if budget.Exhausted() {
				return s.finish(result, dynamo.StatusBudgetExhausted, budget, try/2), nil
			}

			try, clamped = try/2, false
			if cfg.MinStep > 0 && try < cfg.MinStep {
				return result, s.fail(result, budget, t, x, fmt.Errorf("%w: %g < %g", dynamo.ErrStepTooSmall, try, cfg.MinStep))
			}

			att, err = s.estimator.Estimate(dyn, t, x, try)
			if err != nil {
				return result, s.fail(result, budget, t, x, err)
			}
		}

		if cfg.ValidateState && !att.Half.IsValid() {
			return result, s.fail(result, budget, t, x, dynamo.ErrInvalidState)
		}

		if clamped {
			t = cfg.End
		} else {
			t += try
		}
		x = att.Half

		result.Stats.Accepted++
		if result.Stats.Accepted == 1 || try < result.Stats.MinStep {
			result.Stats.MinStep = try
		}
		if try > result.Stats.MaxStep {
			result.Stats.MaxStep = try
		}

		rec = dynamo.Record{
			Step:        result.Stats.Accepted,
			Time:        t,
			StepSize:    try,
			Error:       att.Error,
			Evaluations: budget.Used(),
			State:       x.Clone(),
		}
		if err := s.emit(rec); err != nil {
			return result, s.fail(result, budget, t, x, err)
		}
		result.Final = rec

		h = try
		if att.Error < cfg.Tolerance/growthDivisor {
			h = 2 * try
		}

		s.logger.Debug("step accepted",
			"time", t,
			"step", try,
			"error", att.Error,
			"next_step", h,
			"evaluations", budget.Used(),
		)
	}

	status := dynamo.StatusCompleted
	if t < cfg.End {
		status = dynamo.StatusBudgetExhausted
	}
	return s.finish(result, status, budget, h), nil
}

func (s *Simulator) finish(result *dynamo.Result, status dynamo.Status, budget *dynamo.Budget, next float64) *dynamo.Result {
	result.Status = status
	result.Stats.Evaluations = budget.Used()
	result.Stats.NextStep = next

	s.logger.Info("integration finished",
		"status", status.String(),
		"time", result.Final.Time,
		"accepted", result.Stats.Accepted,
		"rejected", result.Stats.Rejected,
		"evaluations", result.Stats.Evaluations,
	)
	return result
}

func (s *Simulator) emit(rec dynamo.Record) error {
	for _, obs := range s.observers {
		if err := obs.OnStep(rec); err != nil {
			return fmt.Errorf("observer: %w", err)
		}
	}
	return nil
}

// fail marks the partial result as failed and wraps err with the step it
// happened at.
func (s *Simulator) fail(result *dynamo.Result, budget *dynamo.Budget, t float64, x dynamo.State, err error) error {
	result.Status = dynamo.StatusFailed
	result.Stats.Evaluations = budget.Used()

	s.logger.Warn("integration failed",
		"time", t,
		"accepted", result.Stats.Accepted,
		"evaluations", result.Stats.Evaluations,
		"error", err,
	)
	return &dynamo.SimulationError{
		Step:    result.Stats.Accepted,
		Time:    t,
		State:   x.Clone(),
		Wrapped: err,
	}
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg dynamo.Config) error {
	// written as positive checks so that NaN fails them
	if !(cfg.Tolerance > 0) || math.IsInf(cfg.Tolerance, 1) {
		return fmt.Errorf("%w, got %g", dynamo.ErrNonPositiveTolerance, cfg.Tolerance)
	}
	if !(cfg.Start < cfg.End) || math.IsInf(cfg.Start, 0) || math.IsInf(cfg.End, 0) {
		return fmt.Errorf("%w: start=%g end=%g", dynamo.ErrInvalidInterval, cfg.Start, cfg.End)
	}
	if !(cfg.Step > 0) || math.IsInf(cfg.Step, 1) {
		return fmt.Errorf("%w, got %g", dynamo.ErrInvalidStep, cfg.Step)
	}
	if cfg.MaxCalls < 0 {
		return fmt.Errorf("max calls must be non-negative, got %d", cfg.MaxCalls)
	}
	if !(cfg.MinStep >= 0) {
		return fmt.Errorf("min step must be non-negative, got %g", cfg.MinStep)
	}
	if _, err := dynamo.ParseGranularity(string(cfg.Granularity)); err != nil {
		return err
	}
	if len(x0) != s.dyn.Dim() {
		return fmt.Errorf("%w: initial state has %d components, system has %d", dynamo.ErrDimensionMismatch, len(x0), s.dyn.Dim())
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}
