// Package physics provides built-in right-hand sides for the integrator.
//
// Each model implements the [dynamo.System] interface:
//
//   - [Decay]: exponential decay, with a closed-form solution
//   - [Constant]: zero derivative, useful to observe pure step growth
//   - [Harmonic]: undamped oscillator
//   - [VanDerPol]: limit cycle, stiff for large mu
//   - [Lorenz], [Rossler]: chaotic attractors
//   - [Duffing]: forced nonlinear oscillator
//   - [Pendulum]: damped simple pendulum
//
// Most models also implement [dynamo.Configurable] for parameter overrides
// and [dynamo.Defaulter] for a starting state. Models with a known solution
// implement [dynamo.Analytic], conservative ones [dynamo.Hamiltonian].
package physics
