package sim

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/physics"
)

var _ = Describe("Sweep", func() {
	decay := func() (dynamo.System, error) { return physics.NewDecay(), nil }

	It("returns one run per tolerance in input order", func() {
		tols := []float64{1e-4, 1e-6, 1e-8, 1e-10}
		sweep := NewSweep(decay, 3, testLogger())

		runs, err := sweep.Run(context.Background(), dynamo.State{1}, dynamo.DefaultConfig(), tols)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(len(tols)))

		for i, r := range runs {
			Expect(r.Tolerance).To(Equal(tols[i]))
			Expect(r.Result.Status).To(Equal(dynamo.StatusCompleted))
			Expect(r.Records[0].Step).To(BeZero())
			Expect(r.Records[len(r.Records)-1]).To(Equal(r.Result.Final))
			if i > 0 {
				Expect(r.Result.Stats.Evaluations).To(BeNumerically(">=", runs[i-1].Result.Stats.Evaluations))
			}
		}
	})

	It("matches a sequential run for the same tolerance", func() {
		cfg := dynamo.DefaultConfig()
		cfg.Tolerance = 1e-7

		s := New(physics.NewDecay(), WithLogger(testLogger()))
		want, err := s.Run(context.Background(), dynamo.State{1}, cfg)
		Expect(err).NotTo(HaveOccurred())

		runs, err := NewSweep(decay, 2, testLogger()).Run(context.Background(), dynamo.State{1}, cfg, []float64{1e-7, 1e-7})
		Expect(err).NotTo(HaveOccurred())
		for _, r := range runs {
			Expect(r.Result).To(Equal(want))
		}
	})

	It("gives each run its own budget", func() {
		cfg := dynamo.DefaultConfig()
		cfg.MaxCalls = 4

		runs, err := NewSweep(decay, 4, testLogger()).Run(context.Background(), dynamo.State{1}, cfg, []float64{1e-3, 1e-4, 1e-5})
		Expect(err).NotTo(HaveOccurred())
		for _, r := range runs {
			Expect(r.Result.Status).To(Equal(dynamo.StatusBudgetExhausted))
			Expect(r.Result.Stats.Evaluations).To(Equal(int64(12)))
		}
	})

	It("fails when a system cannot be built", func() {
		boom := errors.New("no such model")
		factory := func() (dynamo.System, error) { return nil, boom }

		_, err := NewSweep(factory, 0, nil).Run(context.Background(), dynamo.State{1}, dynamo.DefaultConfig(), []float64{1e-6})
		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("fails on a non-positive tolerance", func() {
		_, err := NewSweep(decay, 2, testLogger()).Run(context.Background(), dynamo.State{1}, dynamo.DefaultConfig(), []float64{1e-6, 0})
		Expect(err).To(MatchError(dynamo.ErrNonPositiveTolerance))
	})
})
