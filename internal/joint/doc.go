// Package joint implements the cable joint between two link peers.
//
// The pieces, leaves first:
//
//   - [Calculate]: derives the immutable [Spec] from [Params] and endpoints
//   - [Build]: materializes a two-segment [Runtime] through an [Engine]
//   - [Measure]: stretch ratio of the compliant segment
//   - [Controller]: create / adjust / drop lifecycle, per-step stretch
//     monitoring and break handling
//
// # Segments
//
// A cable is not one joint but two, sharing an intermediate head body whose
// mass is the average of the peers' masses:
//
//	peer A ──(spring, max distance)── head ══(fixed)══ peer B
//
// Only the compliant segment can break.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. All calls, including
// break callbacks from the engine, are expected on the simulation step.
package joint
