package rigid

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/san-kum/cablesim/internal/envforce"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
)

type constraint struct {
	id    joint.ID
	fixed bool

	body            link.BodyID
	anchor          mgl64.Vec3
	connected       link.BodyID
	connectedAnchor mgl64.Vec3

	maxDistance float64
	spring      float64
	damper      float64
	breakForce  float64
	breakTorque float64
	onBreak     func(force float64)

	// reaction of the last step
	force  float64
	torque float64
}

// World holds bodies and joints and advances them in fixed steps.
// It is not safe for concurrent use.
type World struct {
	env    envforce.Environment
	log    zerolog.Logger
	bodies map[link.BodyID]*body
	joints map[joint.ID]*constraint

	nextBody  link.BodyID
	nextJoint joint.ID
	time      float64
	dropped   int
}

var _ joint.Engine = (*World)(nil)

type Option func(*World)

func WithLogger(l zerolog.Logger) Option {
	return func(w *World) { w.log = l }
}

func NewWorld(env envforce.Environment, opts ...Option) *World {
	w := &World{
		env:      env,
		log:      zerolog.Nop(),
		bodies:   make(map[link.BodyID]*body),
		joints:   make(map[joint.ID]*constraint),
		nextBody: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Time() float64                     { return w.time }
func (w *World) Environment() envforce.Environment { return w.env }
func (w *World) BodyCount() int                    { return len(w.bodies) }
func (w *World) JointCount() int                   { return len(w.joints) }

// Dropped counts environment contributions discarded as non-finite.
func (w *World) Dropped() int { return w.dropped }

func (w *World) SetEnvironment(env envforce.Environment) { w.env = env }

// AddBody adds a body and returns its id.
func (w *World) AddBody(def BodyDef) (link.BodyID, error) {
	if !(def.Mass > 0) || math.IsInf(def.Mass, 0) {
		return 0, fmt.Errorf("%w: mass %v", ErrInvalidBody, def.Mass)
	}
	if def.AirDragMult < 0 || math.IsNaN(def.AirDragMult) {
		return 0, fmt.Errorf("%w: air drag multiplier %v", ErrInvalidBody, def.AirDragMult)
	}
	id := w.nextBody
	w.nextBody++
	w.bodies[id] = &body{
		id:       id,
		mass:     def.Mass,
		pos:      def.Position,
		vel:      def.Velocity,
		rot:      normRot(def.Rotation),
		static:   def.Static,
		dragMult: def.AirDragMult,
	}
	return id, nil
}

// Body returns a snapshot of a body.
func (w *World) Body(id link.BodyID) (BodyState, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return BodyState{}, false
	}
	return b.state(), true
}

// SetVelocity overrides the velocity of a dynamic body.
func (w *World) SetVelocity(id link.BodyID, v mgl64.Vec3) error {
	b, ok := w.bodies[id]
	if !ok {
		return joint.ErrNoBody
	}
	if !b.static {
		b.vel = v
	}
	return nil
}

// JointForce returns the reaction force magnitude of the last step.
func (w *World) JointForce(id joint.ID) (float64, bool) {
	c, ok := w.joints[id]
	if !ok {
		return 0, false
	}
	return c.force, true
}

func (w *World) BodyMass(id link.BodyID) (float64, error) {
	b, ok := w.bodies[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", joint.ErrNoBody, id)
	}
	return b.mass, nil
}

func (w *World) BodyPose(id link.BodyID) (mgl64.Vec3, mgl64.Quat, error) {
	b, ok := w.bodies[id]
	if !ok {
		return mgl64.Vec3{}, mgl64.Quat{}, fmt.Errorf("%w: %d", joint.ErrNoBody, id)
	}
	return b.pos, b.rot, nil
}

func (w *World) NewFreeBody(mass float64, pos mgl64.Vec3, rot mgl64.Quat) (link.BodyID, error) {
	return w.AddBody(BodyDef{Mass: mass, Position: pos, Rotation: rot, AirDragMult: DefaultAirDragMult})
}

func (w *World) SetBodyPose(id link.BodyID, pos mgl64.Vec3, rot mgl64.Quat) error {
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %d", joint.ErrNoBody, id)
	}
	b.pos, b.rot = pos, normRot(rot)
	return nil
}

// RemoveBody removes a body and every joint attached to it. Break listeners
// of those joints are not called.
func (w *World) RemoveBody(id link.BodyID) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for jid, c := range w.joints {
		if c.body == id || c.connected == id {
			delete(w.joints, jid)
		}
	}
}

func (w *World) AddDistanceJoint(def joint.DistanceDef) (joint.ID, error) {
	if err := w.checkEnds(def.Body, def.ConnectedBody); err != nil {
		return 0, err
	}
	if def.MaxDistance < 0 || def.Spring < 0 || def.Damper < 0 {
		return 0, fmt.Errorf("%w: negative distance, spring or damper", ErrInvalidJoint)
	}
	if err := checkLimits(def.BreakForce, def.BreakTorque); err != nil {
		return 0, err
	}
	return w.addJoint(&constraint{
		body:            def.Body,
		anchor:          def.Anchor,
		connected:       def.ConnectedBody,
		connectedAnchor: def.ConnectedAnchor,
		maxDistance:     def.MaxDistance,
		spring:          def.Spring,
		damper:          def.Damper,
		breakForce:      def.BreakForce,
		breakTorque:     def.BreakTorque,
		onBreak:         def.OnBreak,
	}), nil
}

func (w *World) AddFixedJoint(def joint.FixedDef) (joint.ID, error) {
	if err := w.checkEnds(def.Body, def.ConnectedBody); err != nil {
		return 0, err
	}
	if err := checkLimits(def.BreakForce, def.BreakTorque); err != nil {
		return 0, err
	}
	if w.bodies[def.Body].static {
		return 0, fmt.Errorf("%w: cannot weld a static body", ErrInvalidJoint)
	}
	for _, c := range w.joints {
		if c.fixed && c.body == def.Body {
			return 0, fmt.Errorf("%w: body %d is already welded", ErrInvalidJoint, def.Body)
		}
	}
	return w.addJoint(&constraint{
		fixed:           true,
		body:            def.Body,
		anchor:          def.Anchor,
		connected:       def.ConnectedBody,
		connectedAnchor: def.ConnectedAnchor,
		breakForce:      def.BreakForce,
		breakTorque:     def.BreakTorque,
	}), nil
}

func (w *World) SetBreakLimits(id joint.ID, force, torque float64) error {
	c, ok := w.joints[id]
	if !ok {
		return fmt.Errorf("%w: %d", joint.ErrNoJoint, id)
	}
	if err := checkLimits(force, torque); err != nil {
		return err
	}
	c.breakForce, c.breakTorque = force, torque
	return nil
}

func (w *World) RemoveJoint(id joint.ID) {
	delete(w.joints, id)
}

func (w *World) JointAnchors(id joint.ID) (mgl64.Vec3, mgl64.Vec3, bool) {
	c, ok := w.joints[id]
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	a, okA := w.bodies[c.body]
	b, okB := w.bodies[c.connected]
	if !okA || !okB {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return a.world(c.anchor), b.world(c.connectedAnchor), true
}

func (w *World) addJoint(c *constraint) joint.ID {
	c.id = w.nextJoint
	w.nextJoint++
	w.joints[c.id] = c
	return c.id
}

func (w *World) checkEnds(a, b link.BodyID) error {
	if _, ok := w.bodies[a]; !ok {
		return fmt.Errorf("%w: %d", joint.ErrNoBody, a)
	}
	if _, ok := w.bodies[b]; !ok {
		return fmt.Errorf("%w: %d", joint.ErrNoBody, b)
	}
	if a == b {
		return fmt.Errorf("%w: both ends on body %d", ErrInvalidJoint, a)
	}
	return nil
}

func checkLimits(force, torque float64) error {
	if math.IsNaN(force) || math.IsNaN(torque) || force < 0 || torque < 0 {
		return fmt.Errorf("%w: break limits %v/%v", ErrInvalidJoint, force, torque)
	}
	return nil
}

func (w *World) sortedBodies() []*body {
	ids := slices.Sorted(maps.Keys(w.bodies))
	out := make([]*body, len(ids))
	for i, id := range ids {
		out[i] = w.bodies[id]
	}
	return out
}

func (w *World) sortedJoints() []*constraint {
	ids := slices.Sorted(maps.Keys(w.joints))
	out := make([]*constraint, len(ids))
	for i, id := range ids {
		out[i] = w.joints[id]
	}
	return out
}
