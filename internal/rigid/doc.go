// Package rigid is a small point-mass physics world that implements the
// joint.Engine port.
//
// Bodies keep a fixed orientation and are integrated with semi-implicit
// Euler. Distance joints are one-sided spring-dampers; fixed joints weld a
// body to an anchor on its carrier and hand every force on the welded body
// over to the carrier. After each step joints whose reaction exceeds their
// thresholds are removed and their break listener is called.
package rigid
