package rigid

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/cablesim/internal/envforce"
	"github.com/san-kum/cablesim/internal/link"
)

// DefaultAirDragMult is the drag multiplier of bodies created through
// NewFreeBody.
const DefaultAirDragMult = 1.0

// BodyDef describes a body to add to the world. A zero Rotation is treated
// as identity.
type BodyDef struct {
	Mass        float64
	Position    mgl64.Vec3
	Velocity    mgl64.Vec3
	Rotation    mgl64.Quat
	Static      bool
	AirDragMult float64
}

// BodyState is a read-only view of a body.
type BodyState struct {
	ID       link.BodyID
	Mass     float64
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Rotation mgl64.Quat
	Static   bool
}

type body struct {
	id       link.BodyID
	mass     float64
	pos      mgl64.Vec3
	vel      mgl64.Vec3
	rot      mgl64.Quat
	static   bool
	dragMult float64

	force mgl64.Vec3
}

func (b *body) Velocity() mgl64.Vec3 { return b.vel }

// AddForce implements envforce.Receiver. Static bodies ignore forces.
func (b *body) AddForce(f mgl64.Vec3, mode envforce.ForceMode) {
	if b.static {
		return
	}
	if mode == envforce.ModeAcceleration {
		f = f.Mul(b.mass)
	}
	b.force = b.force.Add(f)
}

func (b *body) world(local mgl64.Vec3) mgl64.Vec3 {
	return b.pos.Add(b.rot.Rotate(local))
}

func (b *body) state() BodyState {
	return BodyState{
		ID:       b.id,
		Mass:     b.mass,
		Position: b.pos,
		Velocity: b.vel,
		Rotation: b.rot,
		Static:   b.static,
	}
}

func normRot(q mgl64.Quat) mgl64.Quat {
	if q.W == 0 && q.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
