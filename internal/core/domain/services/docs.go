// Package services provides domain services that do not belong to a single
// aggregate.
//
// The package includes:
//   - Trajectory: the simulated path a delivery agent follows from pickup to
//     delivery when no live positioning is available
package services
