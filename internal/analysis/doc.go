// Package analysis provides post-run diagnostics for adaptive trajectories.
//
//   - [Summarize]: step-size statistics (growth, shrinkage, evaluations per step)
//   - [GlobalError]: distance from a closed-form solution
//   - [EnergyDrift]: relative energy change for conservative systems
//
// All functions work on records loaded from the run store, so they apply to
// past runs as well as fresh ones.
package analysis
