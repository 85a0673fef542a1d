package integrators

import (
	"fmt"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// RK4 is the classical fourth-order Runge-Kutta stepper. It keeps scratch
// buffers between calls, so one RK4 must not be shared across goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

// Evaluations is the number of derivative calls made by one Step.
func (r *RK4) Evaluations() int { return 4 }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) stage(dyn dynamo.System, t float64, x dynamo.State, dst dynamo.State) error {
	dx, err := dyn.Derive(t, x)
	if err != nil {
		return err
	}
	if len(dx) != len(dst) {
		return fmt.Errorf("%w: derivative has %d components, want %d", dynamo.ErrDimensionMismatch, len(dx), len(dst))
	}
	copy(dst, dx)
	return nil
}

// Step advances x from t to t+dt. The input state is left untouched.
func (r *RK4) Step(dyn dynamo.System, t float64, x dynamo.State, dt float64) (dynamo.State, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := r.stage(dyn, t, x, r.k1); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := r.stage(dyn, t+dt*0.5, r.scratch, r.k2); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := r.stage(dyn, t+dt*0.5, r.scratch, r.k3); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := r.stage(dyn, t+dt, r.scratch, r.k4); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}
