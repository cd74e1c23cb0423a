// Package viz is the live terminal view of a cable scenario.
//
// [Model] is a Bubble Tea model that steps a [sim.Scene] on every tick and
// draws the bodies and the cable on a braille [Canvas]. The stretch gauge
// is smoothed with a harmonica spring so that the bar settles instead of
// flickering between steps.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	U     - Drop the cable
//	L     - Link the configured peers again
//	B     - Toggle unbreakable
//	+/-   - Simulation speed
//	R     - Restart the scenario
//	?     - Show help overlay
//	Q     - Quit
package viz
