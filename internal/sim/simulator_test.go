package sim

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/integrators"
	"github.com/san-kum/rkadapt/internal/physics"
)

// scripted stands in for step doubling: it spends twelve calls per attempt,
// moves every component by h and reports whatever error errorAt gives.
type scripted struct {
	errorAt func(h float64) float64
	sizes   []float64
}

func (s *scripted) Estimate(dyn dynamo.System, t float64, x dynamo.State, h float64) (integrators.Attempt, error) {
	s.sizes = append(s.sizes, h)
	for i := 0; i < 12; i++ {
		if _, err := dyn.Derive(t, x); err != nil {
			return integrators.Attempt{}, err
		}
	}
	next := x.Clone()
	for i := range next {
		next[i] += h
	}
	return integrators.Attempt{Full: next, Half: next, Error: s.errorAt(h)}, nil
}

// traced records the time of every derivative call.
type traced struct {
	dynamo.System
	calls []float64
}

func (t *traced) Derive(at float64, y dynamo.State) (dynamo.State, error) {
	t.calls = append(t.calls, at)
	return t.System.Derive(at, y)
}

// attempts recovers (start, size) of every trial step from the call times:
// each attempt opens with a full step whose calls sit at t and t+h.
func (t *traced) attempts() [][2]float64 {
	out := make([][2]float64, 0, len(t.calls)/12)
	for i := 0; i+12 <= len(t.calls); i += 12 {
		out = append(out, [2]float64{t.calls[i], t.calls[i+3] - t.calls[i]})
	}
	return out
}

func collect(s *Simulator) *[]dynamo.Record {
	records := make([]dynamo.Record, 0)
	s.AddObserver(dynamo.ObserverFunc(func(rec dynamo.Record) error {
		records = append(records, rec)
		return nil
	}))
	return &records
}

func stepSizes(records []dynamo.Record) []float64 {
	hs := make([]float64, 0, len(records))
	for _, rec := range records[1:] {
		hs = append(hs, rec.StepSize)
	}
	return hs
}

var _ = Describe("Simulator", func() {
	var (
		ctx context.Context
		cfg dynamo.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = dynamo.DefaultConfig()
	})

	Describe("step control", func() {
		var est *scripted

		BeforeEach(func() {
			cfg.Tolerance = 1e-3
			est = &scripted{}
		})

		run := func() (*dynamo.Result, []dynamo.Record) {
			s := New(physics.NewConstant(1), WithEstimator(est), WithLogger(testLogger()))
			records := collect(s)
			res, err := s.Run(ctx, dynamo.State{0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			return res, *records
		}

		It("halves the step until the estimate is within tolerance", func() {
			cfg.Step = 0.8
			est.errorAt = func(h float64) float64 {
				if h > 0.3 {
					return 2 * cfg.Tolerance
				}
				return cfg.Tolerance / 2
			}

			res, records := run()

			Expect(est.sizes[:3]).To(Equal([]float64{0.8, 0.4, 0.2}))
			Expect(res.Status).To(Equal(dynamo.StatusCompleted))
			Expect(res.Stats.Rejected).To(Equal(2))
			Expect(res.Stats.Accepted).To(Equal(5))
			Expect(res.Stats.Evaluations).To(Equal(int64(12 * 7)))
			Expect(records[1].StepSize).To(Equal(0.2))
			Expect(res.Final.Time).To(Equal(1.0))
		})

		It("doubles the next step after a very small estimate", func() {
			cfg.Step = 0.125
			est.errorAt = func(h float64) float64 {
				if h < 0.5 {
					return cfg.Tolerance / 100
				}
				return cfg.Tolerance / 2
			}

			res, records := run()

			Expect(stepSizes(records)).To(Equal([]float64{0.125, 0.25, 0.5, 0.125}))
			Expect(res.Stats.Rejected).To(BeZero())
			Expect(res.Final.Time).To(Equal(1.0))
			Expect(res.Final.State[0]).To(Equal(1.0))
		})

		It("attempts the doubled step first and halves it back when rejected", func() {
			cfg.Step = 0.125
			est.errorAt = func(h float64) float64 {
				if h < 0.25 {
					return cfg.Tolerance / 100
				}
				return 2 * cfg.Tolerance
			}

			res, records := run()

			Expect(est.sizes[:3]).To(Equal([]float64{0.125, 0.25, 0.125}))
			Expect(stepSizes(records)[:2]).To(Equal([]float64{0.125, 0.125}))
			Expect(res.Stats.Rejected).To(BeNumerically(">=", 1))
			Expect(res.Final.Time).To(Equal(1.0))
		})

		It("keeps the step when the estimate is between tol/64 and tol", func() {
			cfg.Step = 0.25
			est.errorAt = func(float64) float64 { return cfg.Tolerance / 64 }

			_, records := run()
			Expect(stepSizes(records)).To(Equal([]float64{0.25, 0.25, 0.25, 0.25}))
		})

		It("accepts an estimate equal to the tolerance", func() {
			cfg.Step = 0.5
			est.errorAt = func(float64) float64 { return cfg.Tolerance }

			res, _ := run()
			Expect(res.Stats.Rejected).To(BeZero())
			Expect(res.Stats.Accepted).To(Equal(2))
		})

		It("stops between attempts once the budget is spent", func() {
			cfg.Step = 0.125
			cfg.MaxCalls = 24
			est.errorAt = func(float64) float64 { return 0 }

			res, records := run()

			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(records).To(HaveLen(3))
			Expect(res.Final.Time).To(Equal(0.375))
			Expect(res.Stats.NextStep).To(Equal(0.5))
			Expect(res.Stats.Evaluations).To(Equal(int64(24)))
		})

		It("finishes the attempt in flight even past the budget", func() {
			cfg.Step = 0.125
			cfg.MaxCalls = 13
			est.errorAt = func(float64) float64 { return 0 }

			res, records := run()

			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(records).To(HaveLen(3))
			Expect(res.Stats.Evaluations).To(Equal(int64(24)))
		})

		It("returns the last accepted record when a rejection exhausts the budget", func() {
			cfg.Step = 0.5
			cfg.MaxCalls = 12
			est.errorAt = func(float64) float64 { return 1 }

			res, records := run()

			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(records).To(HaveLen(1))
			Expect(res.Final.Time).To(BeZero())
			Expect(res.Stats.Rejected).To(Equal(1))
			Expect(res.Stats.Accepted).To(BeZero())
			Expect(res.Stats.NextStep).To(Equal(0.25))
		})

		It("reports budget exhaustion with only the initial record when max calls is zero", func() {
			cfg.MaxCalls = 0
			est.errorAt = func(float64) float64 { return 0 }

			res, records := run()

			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(records).To(HaveLen(1))
			Expect(est.sizes).To(BeEmpty())
		})

		It("fails when the step would drop below the minimum", func() {
			cfg.Step = 0.5
			cfg.MinStep = 0.1
			est.errorAt = func(float64) float64 { return 1 }

			s := New(physics.NewConstant(1), WithEstimator(est), WithLogger(testLogger()))
			res, err := s.Run(ctx, dynamo.State{0}, cfg)

			Expect(err).To(MatchError(dynamo.ErrStepTooSmall))
			Expect(res.Status).To(Equal(dynamo.StatusFailed))
			Expect(res.Stats.Evaluations).To(Equal(int64(12 * 3)))
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Time).To(BeZero())
			Expect(est.sizes).To(Equal([]float64{0.5, 0.25, 0.125}))
		})
	})

	Describe("with step doubling", func() {
		It("integrates exponential decay to e^-1", func() {
			s := New(physics.NewDecay(), WithLogger(testLogger()))
			records := collect(s)

			res, err := s.Run(ctx, dynamo.State{1}, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(dynamo.StatusCompleted))
			Expect(res.Final.Time).To(Equal(1.0))
			Expect(res.Final.State[0]).To(BeNumerically("~", math.Exp(-1), 5e-6))
			Expect(res.Final).To(Equal((*records)[len(*records)-1]))
		})

		It("takes exactly one attempt under a budget of four calls", func() {
			cfg.MaxCalls = 4
			s := New(physics.NewDecay(), WithLogger(testLogger()))
			records := collect(s)

			res, err := s.Run(ctx, dynamo.State{1}, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(*records).To(HaveLen(2))
			Expect(res.Final.Time).To(BeNumerically("~", 0.1, 1e-15))
			Expect(res.Final.Evaluations).To(Equal(int64(12)))
			Expect(res.Final.State[0]).To(BeNumerically("~", math.Exp(-0.1), 1e-8))
		})

		It("doubles every step of a constant solution and closes on the horizon", func() {
			cfg.End = 10
			cfg.Step = 0.01
			s := New(physics.NewConstant(1), WithLogger(testLogger()))
			records := collect(s)

			res, err := s.Run(ctx, dynamo.State{3}, cfg)
			Expect(err).NotTo(HaveOccurred())

			hs := stepSizes(*records)
			Expect(hs).To(HaveLen(10))
			for i := 0; i < 9; i++ {
				Expect(hs[i]).To(BeNumerically("~", 0.01*math.Pow(2, float64(i)), 1e-12))
			}
			Expect(hs[9]).To(BeNumerically("~", 4.89, 1e-9))
			Expect(res.Final.Time).To(Equal(10.0))
			Expect(res.Final.State).To(Equal(dynamo.State{3}))
			Expect(res.Stats.Evaluations).To(Equal(int64(120)))
		})

		It("charges one unit per equation under equation granularity", func() {
			cfg.Granularity = dynamo.GranularityEquation
			cfg.MaxCalls = 36
			s := New(physics.NewConstant(3), WithLogger(testLogger()))

			res, err := s.Run(ctx, dynamo.State{1, 2, 3}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(res.Stats.Accepted).To(Equal(1))
			Expect(res.Stats.Evaluations).To(Equal(int64(36)))
		})

		It("is deterministic", func() {
			run := func() []dynamo.Record {
				s := New(physics.NewVanDerPol(), WithLogger(testLogger()))
				records := collect(s)
				cfg.End = 5
				_, err := s.Run(ctx, dynamo.State{2, 0}, cfg)
				Expect(err).NotTo(HaveOccurred())
				return *records
			}
			Expect(run()).To(Equal(run()))
		})

		DescribeTable("keeps the step-control invariants",
			func(sys dynamo.System, x0 dynamo.State, end, h0, tol float64) {
				cfg.End = end
				cfg.Step = h0
				cfg.Tolerance = tol
				cfg.MaxCalls = 1_000_000
				dyn := &traced{System: sys}
				s := New(dyn, WithLogger(testLogger()))
				records := collect(s)

				res, err := s.Run(ctx, x0, cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(dynamo.StatusCompleted))

				recs := *records
				Expect(recs[0].Step).To(BeZero())
				Expect(recs[0].Evaluations).To(BeZero())
				for i := 1; i < len(recs); i++ {
					Expect(recs[i].Error).To(BeNumerically("<=", tol))
					Expect(recs[i].Time).To(BeNumerically(">", recs[i-1].Time))
					Expect(recs[i].Time).To(BeNumerically("<=", end))
					Expect(recs[i].Evaluations).To(BeNumerically(">=", recs[i-1].Evaluations))
					Expect(recs[i].Evaluations % 12).To(BeZero())
				}
				Expect(recs[len(recs)-1].Time).To(Equal(end))

				// a retry at the same start is always half the previous attempt
				atts := dyn.attempts()
				Expect(int64(len(atts) * 12)).To(Equal(res.Stats.Evaluations))
				Expect(len(atts)).To(Equal(res.Stats.Accepted + res.Stats.Rejected))
				for i := 1; i < len(atts); i++ {
					if atts[i][0] == atts[i-1][0] {
						Expect(atts[i][1]).To(BeNumerically("~", atts[i-1][1]/2, 1e-12))
					}
				}

				// the next attempt starts at h or 2h depending on the last estimate
				for i := 1; i < len(recs)-1; i++ {
					next := recs[i+1].StepSize
					if recs[i].Error >= tol/64 {
						Expect(next).To(BeNumerically("<=", recs[i].StepSize*(1+1e-12)))
					} else {
						Expect(next).To(BeNumerically("<=", 2*recs[i].StepSize*(1+1e-12)))
					}
				}
			},
			Entry("decay from a large step", physics.NewDecay(), dynamo.State{1}, 1.0, 1.0, 1e-10),
			Entry("harmonic oscillator", physics.NewHarmonic(), dynamo.State{1, 0}, 2*math.Pi, 0.1, 1e-8),
			Entry("van der Pol", physics.NewVanDerPol(), dynamo.State{2, 0}, 10.0, 0.1, 1e-6),
			Entry("lorenz", physics.NewLorenz(), dynamo.State{1, 1, 1}, 2.0, 0.01, 1e-6),
		)
	})

	Describe("errors", func() {
		It("rejects invalid configurations before evaluating", func() {
			sys := &traced{System: physics.NewDecay()}
			s := New(sys, WithLogger(testLogger()))

			bad := []struct {
				mutate func(*dynamo.Config)
				want   error
			}{
				{func(c *dynamo.Config) { c.Tolerance = 0 }, dynamo.ErrNonPositiveTolerance},
				{func(c *dynamo.Config) { c.Tolerance = -1e-6 }, dynamo.ErrNonPositiveTolerance},
				{func(c *dynamo.Config) { c.End = c.Start }, dynamo.ErrInvalidInterval},
				{func(c *dynamo.Config) { c.Step = 0 }, dynamo.ErrInvalidStep},
				{func(c *dynamo.Config) { c.Tolerance = math.NaN() }, dynamo.ErrNonPositiveTolerance},
				{func(c *dynamo.Config) { c.Tolerance = math.Inf(1) }, dynamo.ErrNonPositiveTolerance},
				{func(c *dynamo.Config) { c.End = math.NaN() }, dynamo.ErrInvalidInterval},
				{func(c *dynamo.Config) { c.Start = math.NaN() }, dynamo.ErrInvalidInterval},
				{func(c *dynamo.Config) { c.End = math.Inf(1) }, dynamo.ErrInvalidInterval},
				{func(c *dynamo.Config) { c.Step = math.NaN() }, dynamo.ErrInvalidStep},
				{func(c *dynamo.Config) { c.Step = math.Inf(1) }, dynamo.ErrInvalidStep},
			}
			for _, b := range bad {
				c := dynamo.DefaultConfig()
				b.mutate(&c)
				_, err := s.Run(ctx, dynamo.State{1}, c)
				Expect(err).To(MatchError(b.want))
			}

			_, err := s.Run(ctx, dynamo.State{1, 2}, cfg)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

			_, err = s.Run(ctx, dynamo.State{math.NaN()}, cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))

			c := dynamo.DefaultConfig()
			c.MaxCalls = -1
			_, err = s.Run(ctx, dynamo.State{1}, c)
			Expect(err).To(HaveOccurred())

			c = dynamo.DefaultConfig()
			c.MinStep = math.NaN()
			_, err = s.Run(ctx, dynamo.State{1}, c)
			Expect(err).To(HaveOccurred())

			Expect(sys.calls).To(BeEmpty())
		})

		It("stops when an observer fails", func() {
			boom := errors.New("disk full")
			s := New(physics.NewDecay(), WithLogger(testLogger()))
			s.AddObserver(dynamo.ObserverFunc(func(rec dynamo.Record) error {
				if rec.Step == 2 {
					return boom
				}
				return nil
			}))

			res, err := s.Run(ctx, dynamo.State{1}, cfg)
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(res.Final.Step).To(Equal(1))
			Expect(res.Status).To(Equal(dynamo.StatusFailed))
			Expect(res.Stats.Evaluations).To(BeNumerically(">=", 24))
		})

		It("stops when the initial record cannot be observed", func() {
			boom := errors.New("closed pipe")
			s := New(physics.NewDecay(), WithLogger(testLogger()))
			s.AddObserver(dynamo.ObserverFunc(func(dynamo.Record) error { return boom }))

			res, err := s.Run(ctx, dynamo.State{1}, cfg)
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(res).To(BeNil())
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			s := New(physics.NewDecay(), WithLogger(testLogger()))
			res, err := s.Run(canceled, dynamo.State{1}, cfg)

			Expect(err).To(MatchError(dynamo.ErrContextCanceled))
			Expect(res.Final.Step).To(BeZero())
			Expect(res.Status).To(Equal(dynamo.StatusFailed))
			Expect(res.Stats.Evaluations).To(BeZero())
		})

		It("wraps derivative failures with the step context", func() {
			s := New(&wrongLength{}, WithLogger(testLogger()))
			_, err := s.Run(ctx, dynamo.State{1}, cfg)

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(BeZero())
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("refuses a step that produces NaN", func() {
			s := New(&blowUp{}, WithLogger(testLogger()))
			_, err := s.Run(ctx, dynamo.State{1}, cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})
	})
})

type wrongLength struct{}

func (wrongLength) Dim() int { return 1 }
func (wrongLength) Derive(float64, dynamo.State) (dynamo.State, error) {
	return dynamo.State{1, 1}, nil
}

// blowUp returns NaN derivatives; NaN estimates compare false against the
// tolerance and so are accepted, which leaves the state check to catch them.
type blowUp struct{}

func (blowUp) Dim() int { return 1 }
func (blowUp) Derive(float64, dynamo.State) (dynamo.State, error) {
	return dynamo.State{math.NaN()}, nil
}
