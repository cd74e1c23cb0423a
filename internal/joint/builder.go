package joint

import (
	"fmt"
	"math"

	"github.com/san-kum/cablesim/internal/link"
)

// Runtime is a live cable joint: the head body, the compliant segment that
// ties the head to the source and the rigid segment that welds it to the
// target. The engine owns the objects; Runtime owns their lifetime.
type Runtime struct {
	eng    Engine
	spec   Spec
	source *link.Peer
	target *link.Peer

	head     link.BodyID
	headMass float64
	spring   ID
	fixed    ID

	released bool
}

// Build creates the two-segment joint between the anchors of source and
// target. onBreak is attached to the compliant segment only. On failure
// every object created so far is removed again.
func Build(eng Engine, s Spec, source, target *link.Peer, onBreak func(force float64)) (*Runtime, error) {
	massA, err := eng.BodyMass(source.Body)
	if err != nil {
		return nil, fmt.Errorf("source mass: %w", err)
	}
	massB, err := eng.BodyMass(target.Body)
	if err != nil {
		return nil, fmt.Errorf("target mass: %w", err)
	}
	posA, rotA, err := AnchorWorld(eng, source)
	if err != nil {
		return nil, fmt.Errorf("source anchor: %w", err)
	}
	posB, rotB, err := AnchorWorld(eng, target)
	if err != nil {
		return nil, fmt.Errorf("target anchor: %w", err)
	}

	rt := &Runtime{
		eng:      eng,
		spec:     s,
		source:   source,
		target:   target,
		headMass: HeadMass(massA, massB),
		spring:   -1,
		fixed:    -1,
	}

	// The head starts at the source so the spring segment is set up against
	// the real source anchor.
	rt.head, err = eng.NewFreeBody(rt.headMass, posA, rotA)
	if err != nil {
		return nil, fmt.Errorf("head body: %w", err)
	}

	rt.spring, err = eng.AddDistanceJoint(DistanceDef{
		Body:            rt.head,
		ConnectedBody:   source.Body,
		ConnectedAnchor: source.Anchor.Position,
		MaxDistance:     s.RestLength,
		Spring:          s.Spring,
		Damper:          s.Damper,
		BreakForce:      s.BreakForce,
		BreakTorque:     s.BreakTorque,
		OnBreak:         onBreak,
	})
	if err != nil {
		rt.spring = -1
		rt.Release()
		return nil, fmt.Errorf("spring segment: %w", err)
	}

	// Then it moves over to the target and gets welded there.
	if err := eng.SetBodyPose(rt.head, posB, rotB); err != nil {
		rt.Release()
		return nil, fmt.Errorf("move head: %w", err)
	}

	rt.fixed, err = eng.AddFixedJoint(FixedDef{
		Body:            rt.head,
		ConnectedBody:   target.Body,
		ConnectedAnchor: target.Anchor.Position,
		BreakForce:      math.Inf(1),
		BreakTorque:     math.Inf(1),
	})
	if err != nil {
		rt.fixed = -1
		rt.Release()
		return nil, fmt.Errorf("fixed segment: %w", err)
	}

	return rt, nil
}

func (rt *Runtime) Spec() Spec         { return rt.spec }
func (rt *Runtime) Source() *link.Peer { return rt.source }
func (rt *Runtime) Target() *link.Peer { return rt.target }
func (rt *Runtime) Head() link.BodyID  { return rt.head }
func (rt *Runtime) HeadMass() float64  { return rt.headMass }
func (rt *Runtime) SpringJoint() ID    { return rt.spring }
func (rt *Runtime) FixedJoint() ID     { return rt.fixed }
func (rt *Runtime) Released() bool     { return rt.released }

// Sample measures the compliant segment. A released runtime, or one whose
// spring the engine no longer knows, yields a zero sample.
func (rt *Runtime) Sample() Sample {
	if rt == nil || rt.released {
		return Sample{}
	}
	a, b, ok := rt.eng.JointAnchors(rt.spring)
	if !ok {
		return Sample{}
	}
	return NewSample(a.Sub(b).Len(), rt.spec.RestLength)
}

// SetBreakLimits changes the thresholds of the compliant segment.
func (rt *Runtime) SetBreakLimits(force, torque float64) error {
	if rt.released {
		return ErrNoJoint
	}
	if err := rt.eng.SetBreakLimits(rt.spring, force, torque); err != nil {
		return err
	}
	rt.spec.BreakForce, rt.spec.BreakTorque = force, torque
	return nil
}

// Release removes the segments and the head from the engine. Calling it
// again does nothing.
func (rt *Runtime) Release() {
	if rt == nil || rt.released {
		return
	}
	rt.released = true
	if rt.fixed >= 0 {
		rt.eng.RemoveJoint(rt.fixed)
	}
	if rt.spring >= 0 {
		rt.eng.RemoveJoint(rt.spring)
	}
	rt.eng.RemoveBody(rt.head)
}
