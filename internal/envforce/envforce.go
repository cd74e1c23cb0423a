// Package envforce applies gravity and atmospheric drag to free bodies.
//
// The formulas mirror the flight integrator of the host game closely
// enough for bodies that the host does not integrate itself, such as the
// intermediate head of a cable joint.
package envforce

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PseudoReDragMult scales the drag term. Its physical meaning is unknown;
// it stays at 1 until the host's derivation is understood.
const PseudoReDragMult = 1.0

// DragCoefficient is the fixed factor in front of the drag term.
const DragCoefficient = 0.0005

type ForceMode int

const (
	ModeForce ForceMode = iota
	ModeAcceleration
)

// Receiver is a body that can accept forces.
type Receiver interface {
	Velocity() mgl64.Vec3
	AddForce(f mgl64.Vec3, mode ForceMode)
}

// Environment describes the force field at a body's location.
type Environment struct {
	Gee         mgl64.Vec3 `yaml:"gee"`
	Coriolis    mgl64.Vec3 `yaml:"coriolis"`
	Centrifugal mgl64.Vec3 `yaml:"centrifugal"`

	// FrameVelocity is the velocity of the floating reference frame.
	FrameVelocity mgl64.Vec3 `yaml:"frame_velocity"`

	GraviticMultiplier   float64 `yaml:"gravitic_multiplier"`
	AtmDensity           float64 `yaml:"atm_density"`
	DragMultiplier       float64 `yaml:"drag_multiplier"`
	ApplyDrag            bool    `yaml:"apply_drag"`
	DragUsesAcceleration bool    `yaml:"drag_uses_acceleration"`
}

// Vacuum returns an environment with standard surface gravity and no air.
func Vacuum() Environment {
	return Environment{
		Gee:                mgl64.Vec3{0, -9.81, 0},
		GraviticMultiplier: 1,
		DragMultiplier:     1,
	}
}

// Result reports what Apply did for one body in one step.
type Result struct {
	Gravity        mgl64.Vec3
	Drag           mgl64.Vec3
	GravityDropped bool
	DragDropped    bool
}

// Apply adds gravity and drag to rb. A contribution that evaluates to NaN
// or Inf is dropped for this step instead of being applied.
func Apply(rb Receiver, env Environment, airDragMult float64) Result {
	var res Result

	gee := env.Gee.Add(env.Coriolis).Add(env.Centrifugal).Mul(env.GraviticMultiplier)
	if finite(gee) {
		rb.AddForce(gee, ModeAcceleration)
		res.Gravity = gee
	} else {
		res.GravityDropped = true
	}

	if !env.ApplyDrag || env.AtmDensity <= 0 {
		return res
	}

	v := rb.Velocity().Add(env.FrameVelocity)
	speedSq := v.Dot(v)
	d := DragCoefficient * PseudoReDragMult * env.AtmDensity * airDragMult * speedSq * env.DragMultiplier
	if math.IsNaN(d) || math.IsInf(d, 0) {
		res.DragDropped = true
		return res
	}
	if speedSq == 0 {
		return res
	}

	drag := v.Normalize().Mul(-d)
	if !finite(drag) {
		res.DragDropped = true
		return res
	}
	if env.DragUsesAcceleration {
		rb.AddForce(drag, ModeAcceleration)
	} else {
		rb.AddForce(drag, ModeForce)
	}
	res.Drag = drag
	return res
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
