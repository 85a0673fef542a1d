// Package dynamo provides the core types shared by the integrator, the
// derivative systems and the trajectory writers.
//
//   - [State]: vector representing the system state
//   - [System]: right-hand side of dy/dt = f(t, y)
//   - [Budget]: evaluation counter with a hard limit
//   - [CountedSystem]: System wrapper that charges a Budget per call
//   - [Record]: one accepted point of a trajectory
//   - [Observer]: receiver of records as a run progresses
//
// # Example
//
//	budget := dynamo.NewBudget(cfg.MaxCalls)
//	sys := dynamo.Counted(physics.NewDecay(), budget, dynamo.GranularityVector)
//	dy, err := sys.Derive(0, dynamo.State{1})
//
// # Thread Safety
//
// Budget is safe for concurrent use. State values are plain slices and are
// never mutated in place by the integrator once emitted in a Record.
package dynamo
