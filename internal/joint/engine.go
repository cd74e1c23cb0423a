package joint

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/cablesim/internal/link"
)

// ID identifies a joint inside an engine.
type ID int

// DistanceDef describes a one-sided spring-damper distance limit between a
// body and an anchor point on another body. It only resists separation
// beyond MaxDistance and never pulls the bodies closer than that.
type DistanceDef struct {
	Body            link.BodyID
	Anchor          mgl64.Vec3
	ConnectedBody   link.BodyID
	ConnectedAnchor mgl64.Vec3

	MaxDistance float64
	Spring      float64
	Damper      float64
	BreakForce  float64
	BreakTorque float64

	// OnBreak is called after the engine removed the joint because a
	// threshold was exceeded. It receives the breaking force magnitude.
	OnBreak func(force float64)
}

// FixedDef welds a body to an anchor point on another body.
type FixedDef struct {
	Body            link.BodyID
	Anchor          mgl64.Vec3
	ConnectedBody   link.BodyID
	ConnectedAnchor mgl64.Vec3

	BreakForce  float64
	BreakTorque float64
}

// Engine is the part of the physics engine the joint code relies on.
// Anchors are given in the owning body's local frame.
type Engine interface {
	BodyMass(id link.BodyID) (float64, error)
	BodyPose(id link.BodyID) (position mgl64.Vec3, rotation mgl64.Quat, err error)

	NewFreeBody(mass float64, position mgl64.Vec3, rotation mgl64.Quat) (link.BodyID, error)
	SetBodyPose(id link.BodyID, position mgl64.Vec3, rotation mgl64.Quat) error
	RemoveBody(id link.BodyID)

	// A broken joint is removed before its OnBreak fires, and OnBreak
	// fires at most once.
	AddDistanceJoint(def DistanceDef) (ID, error)
	AddFixedJoint(def FixedDef) (ID, error)
	SetBreakLimits(id ID, force, torque float64) error
	// RemoveJoint removes a joint without firing its break listener.
	// Unknown or already removed ids are ignored.
	RemoveJoint(id ID)

	// JointAnchors returns the world positions of both ends of a joint,
	// or ok=false if the joint is gone.
	JointAnchors(id ID) (a, b mgl64.Vec3, ok bool)
}

// AnchorWorld resolves a peer's anchor into world space.
func AnchorWorld(eng Engine, p *link.Peer) (mgl64.Vec3, mgl64.Quat, error) {
	pos, rot, err := eng.BodyPose(p.Body)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Quat{}, err
	}
	return pos.Add(rot.Rotate(p.Anchor.Position)), rot.Mul(p.Anchor.Orientation), nil
}
