package integrators

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

type oscillator struct{ calls []float64 }

func (o *oscillator) Dim() int { return 2 }

func (o *oscillator) Derive(t float64, x dynamo.State) (dynamo.State, error) {
	o.calls = append(o.calls, t)
	return dynamo.State{x[1], -x[0]}, nil
}

type shortDerivative struct{}

func (shortDerivative) Dim() int { return 2 }

func (shortDerivative) Derive(float64, dynamo.State) (dynamo.State, error) {
	return dynamo.State{1}, nil
}

type failing struct{ err error }

func (f failing) Dim() int { return 1 }

func (f failing) Derive(float64, dynamo.State) (dynamo.State, error) { return nil, f.err }

var _ = Describe("RK4", func() {
	var (
		rk4 *RK4
		dyn *oscillator
	)

	BeforeEach(func() {
		rk4 = NewRK4()
		dyn = &oscillator{}
	})

	It("tracks the harmonic oscillator", func() {
		x := dynamo.State{1, 0}
		dt := 0.01
		for i := 0; i < 100; i++ {
			var err error
			x, err = rk4.Step(dyn, float64(i)*dt, x, dt)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(x[0]).To(BeNumerically("~", math.Cos(1), 1e-8))
		Expect(x[1]).To(BeNumerically("~", -math.Sin(1), 1e-8))
	})

	It("evaluates the derivative four times at t, t+h/2, t+h/2 and t+h", func() {
		_, err := rk4.Step(dyn, 2, dynamo.State{1, 0}, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(dyn.calls).To(Equal([]float64{2, 2.25, 2.25, 2.5}))
		Expect(rk4.Evaluations()).To(Equal(len(dyn.calls)))
	})

	It("leaves the input state untouched", func() {
		x := dynamo.State{1, 0}
		next, err := rk4.Step(dyn, 0, x, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(x).To(Equal(dynamo.State{1, 0}))
		Expect(next).NotTo(Equal(x))
	})

	It("returns a fresh slice on every call", func() {
		a, _ := rk4.Step(dyn, 0, dynamo.State{1, 0}, 0.1)
		saved := a.Clone()
		_, _ = rk4.Step(dyn, 0, dynamo.State{5, 5}, 0.1)
		Expect(a).To(Equal(saved))
	})

	It("integrates a linear right-hand side exactly", func() {
		next, err := rk4.Step(ramp{}, 0, dynamo.State{0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(next[0]).To(BeNumerically("~", 4, 1e-12))
	})

	It("rejects derivatives of the wrong length", func() {
		_, err := rk4.Step(shortDerivative{}, 0, dynamo.State{1, 0}, 0.1)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("passes derivative errors through", func() {
		boom := errors.New("boom")
		_, err := rk4.Step(failing{err: boom}, 0, dynamo.State{1}, 0.1)
		Expect(errors.Is(err, boom)).To(BeTrue())
	})
})

// ramp is dy/dt = 2t, solved by y = t^2.
type ramp struct{}

func (ramp) Dim() int { return 1 }

func (ramp) Derive(t float64, _ dynamo.State) (dynamo.State, error) {
	return dynamo.State{2 * t}, nil
}
