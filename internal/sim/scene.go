package sim

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/rigid"
)

// Scene is a scenario built into a live world. It advances one step at a
// time so that both the batch runner and the live view can drive it.
type Scene struct {
	cfg *config.Config
	log zerolog.Logger

	World *rigid.World
	Peers *link.Registry
	Ctrl  *joint.Controller

	bodies   map[string]link.BodyID
	renderer joint.StretchRenderer

	timeline []config.EventConfig
	next     int
	step     int
	events   []Event
}

type SceneOption func(*Scene)

func WithSceneLogger(l zerolog.Logger) SceneOption {
	return func(s *Scene) { s.log = l }
}

// WithRenderer hands r to every joint the scene creates.
func WithRenderer(r joint.StretchRenderer) SceneOption {
	return func(s *Scene) { s.renderer = r }
}

func NewScene(cfg *config.Config, opts ...SceneOption) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scene{
		cfg:    cfg,
		log:    zerolog.Nop(),
		bodies: make(map[string]link.BodyID, len(cfg.Bodies)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.World = rigid.NewWorld(cfg.Environment, rigid.WithLogger(s.log))
	for _, b := range cfg.Bodies {
		id, err := s.World.AddBody(rigid.BodyDef{
			Mass:        b.Mass,
			Position:    b.Position,
			Velocity:    b.Velocity,
			Rotation:    config.Quat(b.Rotation),
			Static:      b.Static,
			AirDragMult: b.AirDragMult,
		})
		if err != nil {
			return nil, fmt.Errorf("body %s: %w", b.Name, err)
		}
		s.bodies[b.Name] = id
	}

	s.Peers = link.NewRegistry()
	for _, p := range cfg.Peers {
		peer := link.NewPeer(p.Name, s.bodies[p.Body], p.LinkType, p.Node, link.Pose{
			Position:    p.Anchor,
			Orientation: config.Quat(p.AnchorRotation),
		})
		if err := s.Peers.Add(peer); err != nil {
			return nil, err
		}
		if p.Blocked {
			if err := s.Peers.SetNodeBlocked(peer, true); err != nil {
				return nil, err
			}
		}
	}

	ctrl, err := joint.NewController(s.World, s.Peers, cfg.Cable,
		joint.WithLogger(s.log),
		joint.WithUnbreakable(cfg.Unbreakable))
	if err != nil {
		return nil, err
	}
	s.Ctrl = ctrl
	s.Ctrl.Subscribe(s.onUnlink)

	s.timeline = append([]config.EventConfig(nil), cfg.Events...)
	sort.SliceStable(s.timeline, func(i, j int) bool { return s.timeline[i].At < s.timeline[j].At })

	if cfg.Link.Source != "" {
		if err := s.Link(); err != nil {
			return nil, fmt.Errorf("initial link: %w", err)
		}
	}
	return s, nil
}

func (s *Scene) Config() *config.Config { return s.cfg }
func (s *Scene) Time() float64          { return s.World.Time() }
func (s *Scene) Steps() int             { return s.step }
func (s *Scene) Done() bool             { return s.step >= s.cfg.Steps() }

// Events returns the events recorded so far.
func (s *Scene) Events() []Event {
	return append([]Event(nil), s.events...)
}

// BodyID resolves a configured body name.
func (s *Scene) BodyID(name string) (link.BodyID, bool) {
	id, ok := s.bodies[name]
	return id, ok
}

// Frame describes the current state without stepping.
func (s *Scene) Frame() Frame {
	f := Frame{
		Time:    s.World.Time(),
		Phase:   s.Ctrl.Phase(),
		Stretch: s.Ctrl.Sample(),
	}
	if rt := s.Ctrl.Runtime(); rt != nil {
		f.Tension, _ = s.World.JointForce(rt.SpringJoint())
	}
	return f
}

// Step fires the events due at the current time, advances the world by one
// step and runs the stretch monitor.
func (s *Scene) Step() (Frame, error) {
	dt := s.cfg.Dt
	for s.next < len(s.timeline) && s.timeline[s.next].At <= s.World.Time()+dt/2 {
		s.apply(s.timeline[s.next])
		s.next++
	}
	if err := s.World.Step(dt); err != nil {
		return Frame{}, err
	}
	s.Ctrl.Step()
	s.step++
	return s.Frame(), nil
}

// Link creates the configured link. It fails when a joint is already active
// or either peer is unavailable.
func (s *Scene) Link() error {
	src, _ := s.Peers.Get(s.cfg.Link.Source)
	tgt, _ := s.Peers.Get(s.cfg.Link.Target)
	if src == nil || tgt == nil {
		return fmt.Errorf("%w: %s -> %s", link.ErrUnknownPeer, s.cfg.Link.Source, s.cfg.Link.Target)
	}
	if err := s.Ctrl.CreateJoint(src, tgt, s.renderer); err != nil {
		return err
	}
	s.record(Event{Kind: EventLink, Detail: src.ID + " -> " + tgt.ID})
	return nil
}

func (s *Scene) apply(ev config.EventConfig) {
	switch ev.Action {
	case config.ActionLink:
		if err := s.Link(); err != nil {
			s.log.Warn().Err(err).Float64("t", s.World.Time()).Msg("link refused")
			s.record(Event{Kind: EventLinkFailed, Detail: err.Error()})
		}
	case config.ActionUnlink:
		s.Ctrl.DropJoint()
	case config.ActionUnbreakable, config.ActionBreakable:
		if s.Ctrl.IsActive() {
			s.Ctrl.AdjustJoint(ev.Action == config.ActionUnbreakable)
			s.record(Event{Kind: EventAdjust, Detail: ev.Action})
		}
	case config.ActionDestroy:
		s.destroy(ev.Body)
	case config.ActionPush:
		id := s.bodies[ev.Body]
		if err := s.World.SetVelocity(id, ev.Velocity); err != nil {
			s.log.Warn().Err(err).Str("body", ev.Body).Msg("push on missing body")
			return
		}
		s.record(Event{Kind: EventPush, Detail: ev.Body})
	}
}

// destroy removes a body. A joint attached to it is torn down first, then
// the body's peers leave the registry.
func (s *Scene) destroy(name string) {
	id, ok := s.bodies[name]
	if !ok {
		return
	}
	if src, tgt, ok := s.Ctrl.Peers(); ok && (src.Body == id || tgt.Body == id) {
		s.Ctrl.Destroy()
	}
	for _, p := range s.Peers.OnBody(id) {
		s.Peers.Remove(p.ID)
	}
	s.World.RemoveBody(id)
	delete(s.bodies, name)
	s.record(Event{Kind: EventDestroy, Detail: name})
}

func (s *Scene) onUnlink(ev joint.UnlinkEvent) {
	s.record(Event{
		Kind:   EventUnlink,
		Detail: ev.Cause.String(),
		Force:  ev.Force,
	})
}

func (s *Scene) record(ev Event) {
	ev.Time = s.World.Time()
	s.events = append(s.events, ev)
}
