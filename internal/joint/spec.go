package joint

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultSpring         = 1000.0
	DefaultDamper         = 1.0
	DefaultBreakForce     = 4000.0
	DefaultBreakTorque    = 4000.0
	DefaultMinBreakForce  = 10.0
	DefaultMinBreakTorque = 10.0
)

// Params is the cable configuration. Spring is the force per meter of
// stretch; Slack is added to the link-time separation to get the rest length.
type Params struct {
	Spring         float64 `yaml:"strength" json:"strength"`
	Damper         float64 `yaml:"damper" json:"damper"`
	BreakForce     float64 `yaml:"break_force" json:"break_force"`
	BreakTorque    float64 `yaml:"break_torque" json:"break_torque"`
	MinBreakForce  float64 `yaml:"min_break_force" json:"min_break_force"`
	MinBreakTorque float64 `yaml:"min_break_torque" json:"min_break_torque"`
	Slack          float64 `yaml:"slack" json:"slack"`
}

func DefaultParams() Params {
	return Params{
		Spring:         DefaultSpring,
		Damper:         DefaultDamper,
		BreakForce:     DefaultBreakForce,
		BreakTorque:    DefaultBreakTorque,
		MinBreakForce:  DefaultMinBreakForce,
		MinBreakTorque: DefaultMinBreakTorque,
	}
}

// Validate rejects values the calculator cannot work with.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"strength", p.Spring},
		{"min_break_force", p.MinBreakForce},
		{"min_break_torque", p.MinBreakTorque},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParams, f.name, f.v)
		}
	}
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"damper", p.Damper},
		{"break_force", p.BreakForce},
		{"break_torque", p.BreakTorque},
		{"slack", p.Slack},
	}
	for _, f := range nonNegative {
		if math.IsNaN(f.v) || f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidParams, f.name, f.v)
		}
	}
	return nil
}

// Endpoint is one end of a joint at link time.
type Endpoint struct {
	Position mgl64.Vec3
	Mass     float64
}

// Spec holds the physical parameters of one joint. It is computed once at
// link time; only the break thresholds change afterwards, via AdjustJoint.
type Spec struct {
	Spring      float64
	Damper      float64
	RestLength  float64
	BreakForce  float64
	BreakTorque float64
}

// Unbreakable reports whether both thresholds are infinite.
func (s Spec) Unbreakable() bool {
	return math.IsInf(s.BreakForce, 1) && math.IsInf(s.BreakTorque, 1)
}

// Calculate derives a joint spec from the configuration and the endpoints.
func Calculate(p Params, a, b Endpoint, unbreakable bool) Spec {
	s := Spec{
		Spring:     p.Spring,
		Damper:     p.Damper,
		RestLength: a.Position.Sub(b.Position).Len() + p.Slack,
	}
	s.BreakForce, s.BreakTorque = BreakLimits(p, unbreakable)
	return s
}

// BreakLimits returns the clamped break force and torque, or infinity for
// both when unbreakable is set.
func BreakLimits(p Params, unbreakable bool) (force, torque float64) {
	if unbreakable {
		return math.Inf(1), math.Inf(1)
	}
	return math.Max(p.BreakForce, p.MinBreakForce), math.Max(p.BreakTorque, p.MinBreakTorque)
}

// HeadMass is the mass of the intermediate body between two endpoints.
// Joints become unstable when the connected masses differ too much, so the
// head takes the average.
func HeadMass(a, b float64) float64 {
	return (a + b) / 2
}
