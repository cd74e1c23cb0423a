package rigid

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/cablesim/internal/envforce"
	"github.com/san-kum/cablesim/internal/link"
)

// Step advances the world by dt seconds.
//
// Order: environment forces, distance joints, welds, integration, weld
// follow-up, break checks. Break listeners run last, after their joint has
// been removed, so a listener may freely remove bodies and joints.
func (w *World) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}

	bodies := w.sortedBodies()
	joints := w.sortedJoints()

	for _, b := range bodies {
		b.force = mgl64.Vec3{}
	}
	for _, b := range bodies {
		if b.static {
			continue
		}
		res := envforce.Apply(b, w.env, b.dragMult)
		if res.GravityDropped || res.DragDropped {
			w.dropped++
			w.log.Debug().
				Int("body", int(b.id)).
				Bool("gravity", res.GravityDropped).
				Bool("drag", res.DragDropped).
				Msg("dropped non-finite environment force")
		}
	}

	for _, c := range joints {
		if !c.fixed {
			w.applyDistance(c)
		}
	}

	carried := make(map[link.BodyID]float64)
	welded := make(map[link.BodyID]bool)
	for _, c := range joints {
		if c.fixed {
			w.applyWeld(c, carried)
			welded[c.body] = true
		}
	}

	for _, b := range bodies {
		if b.static || welded[b.id] {
			continue
		}
		m := b.mass + carried[b.id]
		b.vel = b.vel.Add(b.force.Mul(dt / m))
		b.pos = b.pos.Add(b.vel.Mul(dt))
	}

	for _, c := range joints {
		if c.fixed {
			w.follow(c)
		}
	}

	w.time += dt
	w.checkBreaks(joints)
	return nil
}

// applyDistance resists separation beyond maxDistance only.
func (w *World) applyDistance(c *constraint) {
	c.force, c.torque = 0, 0
	a, okA := w.bodies[c.body]
	b, okB := w.bodies[c.connected]
	if !okA || !okB {
		return
	}

	d := a.world(c.anchor).Sub(b.world(c.connectedAnchor))
	dist := d.Len()
	if dist <= c.maxDistance || dist == 0 {
		return
	}
	n := d.Mul(1 / dist)
	closing := a.vel.Sub(b.vel).Dot(n)
	f := c.spring*(dist-c.maxDistance) + c.damper*closing
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.log.Debug().Int("joint", int(c.id)).Msg("skipped non-finite joint force")
		return
	}
	if f <= 0 {
		return
	}

	pull := n.Mul(f)
	a.AddForce(pull.Mul(-1), envforce.ModeForce)
	b.AddForce(pull, envforce.ModeForce)
	c.force = f
	c.torque = b.rot.Rotate(c.connectedAnchor).Cross(pull).Len()
}

// applyWeld moves the welded body's accumulated force onto its carrier.
func (w *World) applyWeld(c *constraint, carried map[link.BodyID]float64) {
	c.force, c.torque = 0, 0
	head, okH := w.bodies[c.body]
	carrier, okC := w.bodies[c.connected]
	if !okH || !okC {
		return
	}

	f := head.force
	head.force = mgl64.Vec3{}
	carrier.AddForce(f, envforce.ModeForce)
	carried[carrier.id] += head.mass
	c.force = f.Len()
	c.torque = carrier.rot.Rotate(c.connectedAnchor).Cross(f).Len()
}

func (w *World) follow(c *constraint) {
	head, okH := w.bodies[c.body]
	carrier, okC := w.bodies[c.connected]
	if !okH || !okC {
		return
	}
	head.pos = carrier.world(c.connectedAnchor).Sub(head.rot.Rotate(c.anchor))
	head.vel = carrier.vel
}

func (w *World) checkBreaks(joints []*constraint) {
	for _, c := range joints {
		if cur, ok := w.joints[c.id]; !ok || cur != c {
			// removed by an earlier listener
			continue
		}
		if c.force <= c.breakForce && c.torque <= c.breakTorque {
			continue
		}
		delete(w.joints, c.id)
		w.log.Debug().
			Int("joint", int(c.id)).
			Float64("force", c.force).
			Float64("torque", c.torque).
			Msg("joint broke")
		if c.onBreak != nil {
			c.onBreak(c.force)
		}
	}
}
