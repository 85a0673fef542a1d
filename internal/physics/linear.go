package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// Decay is dy/dt = -k*y applied to every component.
type Decay struct {
	K   float64
	dim int
}

func NewDecay() *Decay { return &Decay{K: 1.0, dim: 1} }

// NewDecayN is Decay over n independent components.
func NewDecayN(n int) *Decay { return &Decay{K: 1.0, dim: n} }

func (d *Decay) Dim() int { return d.dim }

func (d *Decay) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	dy := make(dynamo.State, len(y))
	for i, v := range y {
		dy[i] = -d.K * v
	}
	return dy, nil
}

func (d *Decay) DefaultState() dynamo.State {
	s := make(dynamo.State, d.dim)
	for i := range s {
		s[i] = 1.0
	}
	return s
}

func (d *Decay) Solution(t0 float64, y0 dynamo.State, t float64) dynamo.State {
	return y0.Scale(math.Exp(-d.K * (t - t0)))
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"k": d.K}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "k" {
		return fmt.Errorf("unknown param: %s", name)
	}
	d.K = value
	return nil
}

// Constant is dy/dt = 0. Its step-doubling error is exactly zero.
type Constant struct{ dim int }

func NewConstant(n int) *Constant {
	if n < 1 {
		n = 1
	}
	return &Constant{dim: n}
}

func (c *Constant) Dim() int { return c.dim }

func (c *Constant) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	return make(dynamo.State, len(y)), nil
}

func (c *Constant) DefaultState() dynamo.State { return make(dynamo.State, c.dim) }

func (c *Constant) Solution(_ float64, y0 dynamo.State, _ float64) dynamo.State {
	return y0.Clone()
}

// Harmonic is the undamped oscillator d2x/dt2 = -omega^2 x with state [x, v].
type Harmonic struct {
	Omega float64
}

func NewHarmonic() *Harmonic { return &Harmonic{Omega: 1.0} }

func (h *Harmonic) Dim() int { return 2 }

func (h *Harmonic) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{y[1], -h.Omega * h.Omega * y[0]}, nil
}

func (h *Harmonic) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (h *Harmonic) Energy(y dynamo.State) float64 {
	return 0.5 * (y[1]*y[1] + h.Omega*h.Omega*y[0]*y[0])
}

func (h *Harmonic) Solution(t0 float64, y0 dynamo.State, t float64) dynamo.State {
	w := h.Omega
	c, s := math.Cos(w*(t-t0)), math.Sin(w*(t-t0))
	return dynamo.State{
		y0[0]*c + y0[1]/w*s,
		-y0[0]*w*s + y0[1]*c,
	}
}

func (h *Harmonic) GetParams() map[string]float64 {
	return map[string]float64{"omega": h.Omega}
}

func (h *Harmonic) SetParam(name string, value float64) error {
	if name != "omega" {
		return fmt.Errorf("unknown param: %s", name)
	}
	if value == 0 {
		return fmt.Errorf("omega must be non-zero")
	}
	h.Omega = value
	return nil
}
