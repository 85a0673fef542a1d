// Package viz renders trajectories in the terminal.
//
//   - [PlotStates], [PlotStepSize], [PlotSweep]: asciigraph line plots
//   - [Summary]: lipgloss panel with the outcome of a run
//   - [Replay]: Bubble Tea model that steps through stored records
//
// # Key Bindings (Replay)
//
//	←/→   - previous/next record
//	Space - play/pause
//	g/G   - first/last record
//	q     - quit
package viz
