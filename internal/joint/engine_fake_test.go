package joint

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/cablesim/internal/link"
)

type fakeBody struct {
	mass  float64
	pos   mgl64.Vec3
	rot   mgl64.Quat
	poses []mgl64.Vec3
}

type fakeJoint struct {
	dist  *DistanceDef
	fixed *FixedDef
}

// fakeEngine is an Engine that records calls and never integrates.
type fakeEngine struct {
	bodies    map[link.BodyID]*fakeBody
	joints    map[ID]*fakeJoint
	nextBody  link.BodyID
	nextJoint ID

	failDistance bool
	failFixed    bool
	// breakOnRemove fires the distance joint's listener from RemoveJoint,
	// the worst case of a break racing a teardown.
	breakOnRemove bool

	removedJoints []ID
	removedBodies []link.BodyID
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		bodies:   make(map[link.BodyID]*fakeBody),
		joints:   make(map[ID]*fakeJoint),
		nextBody: 100,
	}
}

func (e *fakeEngine) addBody(id link.BodyID, mass float64, pos mgl64.Vec3) {
	e.bodies[id] = &fakeBody{mass: mass, pos: pos, rot: mgl64.QuatIdent()}
}

func (e *fakeEngine) move(id link.BodyID, pos mgl64.Vec3) { e.bodies[id].pos = pos }

func (e *fakeEngine) BodyMass(id link.BodyID) (float64, error) {
	b, ok := e.bodies[id]
	if !ok {
		return 0, ErrNoBody
	}
	return b.mass, nil
}

func (e *fakeEngine) BodyPose(id link.BodyID) (mgl64.Vec3, mgl64.Quat, error) {
	b, ok := e.bodies[id]
	if !ok {
		return mgl64.Vec3{}, mgl64.Quat{}, ErrNoBody
	}
	return b.pos, b.rot, nil
}

func (e *fakeEngine) NewFreeBody(mass float64, pos mgl64.Vec3, rot mgl64.Quat) (link.BodyID, error) {
	id := e.nextBody
	e.nextBody++
	e.bodies[id] = &fakeBody{mass: mass, pos: pos, rot: rot, poses: []mgl64.Vec3{pos}}
	return id, nil
}

func (e *fakeEngine) SetBodyPose(id link.BodyID, pos mgl64.Vec3, rot mgl64.Quat) error {
	b, ok := e.bodies[id]
	if !ok {
		return ErrNoBody
	}
	b.pos, b.rot = pos, rot
	b.poses = append(b.poses, pos)
	return nil
}

func (e *fakeEngine) RemoveBody(id link.BodyID) {
	if _, ok := e.bodies[id]; ok {
		delete(e.bodies, id)
		e.removedBodies = append(e.removedBodies, id)
	}
}

func (e *fakeEngine) AddDistanceJoint(def DistanceDef) (ID, error) {
	if e.failDistance {
		return 0, errors.New("distance joint refused")
	}
	id := e.nextJoint
	e.nextJoint++
	e.joints[id] = &fakeJoint{dist: &def}
	return id, nil
}

func (e *fakeEngine) AddFixedJoint(def FixedDef) (ID, error) {
	if e.failFixed {
		return 0, errors.New("fixed joint refused")
	}
	id := e.nextJoint
	e.nextJoint++
	e.joints[id] = &fakeJoint{fixed: &def}
	return id, nil
}

func (e *fakeEngine) SetBreakLimits(id ID, force, torque float64) error {
	j, ok := e.joints[id]
	if !ok || j.dist == nil {
		return ErrNoJoint
	}
	j.dist.BreakForce, j.dist.BreakTorque = force, torque
	return nil
}

func (e *fakeEngine) RemoveJoint(id ID) {
	j, ok := e.joints[id]
	if !ok {
		return
	}
	delete(e.joints, id)
	e.removedJoints = append(e.removedJoints, id)
	if e.breakOnRemove && j.dist != nil && j.dist.OnBreak != nil {
		j.dist.OnBreak(1)
	}
}

// breakJoint removes a distance joint and fires its listener, as an engine
// does after its solver exceeded the threshold.
func (e *fakeEngine) breakJoint(id ID, force float64) {
	j, ok := e.joints[id]
	if !ok {
		return
	}
	delete(e.joints, id)
	if j.dist != nil && j.dist.OnBreak != nil {
		j.dist.OnBreak(force)
	}
}

func (e *fakeEngine) world(body link.BodyID, local mgl64.Vec3) mgl64.Vec3 {
	b := e.bodies[body]
	return b.pos.Add(b.rot.Rotate(local))
}

// headWorld follows the weld when the head is fixed to a carrier.
func (e *fakeEngine) headWorld(head link.BodyID, local mgl64.Vec3) mgl64.Vec3 {
	for _, j := range e.joints {
		if j.fixed != nil && j.fixed.Body == head {
			return e.world(j.fixed.ConnectedBody, j.fixed.ConnectedAnchor)
		}
	}
	return e.world(head, local)
}

func (e *fakeEngine) JointAnchors(id ID) (mgl64.Vec3, mgl64.Vec3, bool) {
	j, ok := e.joints[id]
	if !ok || j.dist == nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	if _, ok := e.bodies[j.dist.Body]; !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	a := e.headWorld(j.dist.Body, j.dist.Anchor)
	b := e.world(j.dist.ConnectedBody, j.dist.ConnectedAnchor)
	return a, b, true
}

type recordingRenderer struct {
	ratios []float64
}

func (r *recordingRenderer) SetStretchRatio(v float64) { r.ratios = append(r.ratios, v) }

func (r *recordingRenderer) last() float64 {
	if len(r.ratios) == 0 {
		return 0
	}
	return r.ratios[len(r.ratios)-1]
}
