package joint

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/cablesim/internal/link"
)

// Phase is the lifecycle state of a Controller.
type Phase int

const (
	NoJoint Phase = iota
	Active
	TearingDown
)

func (p Phase) String() string {
	switch p {
	case NoJoint:
		return "no_joint"
	case Active:
		return "active"
	case TearingDown:
		return "tearing_down"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "no_joint":
		return NoJoint, nil
	case "active":
		return Active, nil
	case "tearing_down":
		return TearingDown, nil
	}
	return NoJoint, fmt.Errorf("joint: unknown phase %q", s)
}

// Controller owns at most one cable joint and drives it through its
// lifecycle: CreateJoint, Step every simulation tick, and one of DropJoint,
// Destroy or an engine break to end it.
type Controller struct {
	eng    Engine
	peers  *link.Registry
	params Params
	log    zerolog.Logger

	unbreakable bool

	phase       Phase
	rt          *Runtime
	renderer    StretchRenderer
	sample      Sample
	lastCause   Cause
	subscribers []func(UnlinkEvent)
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithUnbreakable makes new joints start with infinite break thresholds.
func WithUnbreakable(v bool) Option {
	return func(c *Controller) { c.unbreakable = v }
}

// NewController validates the cable parameters up front so that joint
// creation never fails on configuration.
func NewController(eng Engine, peers *link.Registry, p Params, opts ...Option) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		eng:    eng,
		peers:  peers,
		params: p,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateJoint links source and target with a cable. renderer may be nil.
// On error neither the peers nor the engine are changed.
func (c *Controller) CreateJoint(source, target *link.Peer, renderer StretchRenderer) error {
	if c.phase != NoJoint {
		return ErrJointExists
	}
	if err := c.peers.CanLink(source, target); err != nil {
		return err
	}

	posA, _, err := AnchorWorld(c.eng, source)
	if err != nil {
		return fmt.Errorf("source anchor: %w", err)
	}
	posB, _, err := AnchorWorld(c.eng, target)
	if err != nil {
		return fmt.Errorf("target anchor: %w", err)
	}
	massA, err := c.eng.BodyMass(source.Body)
	if err != nil {
		return fmt.Errorf("source mass: %w", err)
	}
	massB, err := c.eng.BodyMass(target.Body)
	if err != nil {
		return fmt.Errorf("target mass: %w", err)
	}
	spec := Calculate(c.params,
		Endpoint{Position: posA, Mass: massA},
		Endpoint{Position: posB, Mass: massB},
		c.unbreakable)

	var rt *Runtime
	onBreak := func(force float64) {
		if c.rt == rt {
			c.HandleBreak(force)
		}
	}
	rt, err = Build(c.eng, spec, source, target, onBreak)
	if err != nil {
		return err
	}
	if err := c.peers.Link(source, target); err != nil {
		rt.Release()
		return err
	}

	c.rt = rt
	c.renderer = renderer
	c.phase = Active
	c.lastCause = CauseNone
	c.sample = rt.Sample()
	if c.renderer != nil {
		c.renderer.SetStretchRatio(c.sample.RenderRatio())
	}

	c.log.Info().
		Str("source", source.ID).
		Str("target", target.ID).
		Float64("rest_length", spec.RestLength).
		Float64("head_mass", rt.HeadMass()).
		Float64("break_force", spec.BreakForce).
		Float64("break_torque", spec.BreakTorque).
		Msg("cable joint created")
	return nil
}

// AdjustJoint recomputes the break thresholds of the active joint. It does
// nothing when there is no joint.
func (c *Controller) AdjustJoint(unbreakable bool) {
	if c.phase != Active {
		return
	}
	force, torque := BreakLimits(c.params, unbreakable)
	if err := c.rt.SetBreakLimits(force, torque); err != nil {
		c.log.Debug().Err(err).Msg("adjust on vanished joint")
		return
	}
	c.log.Debug().
		Bool("unbreakable", unbreakable).
		Float64("break_force", force).
		Float64("break_torque", torque).
		Msg("cable joint adjusted")
}

// DropJoint releases the joint and makes both peers available again.
// It is safe to call when there is no joint.
func (c *Controller) DropJoint() {
	c.teardown(CauseCommanded, 0)
}

// Destroy drops the joint because one of the linked bodies is gone.
func (c *Controller) Destroy() {
	c.teardown(CauseDestroyed, 0)
}

// Step runs the stretch monitor. It is called once per simulation step.
func (c *Controller) Step() Sample {
	if c.phase != Active {
		return Sample{}
	}
	c.sample = c.rt.Sample()
	if c.renderer != nil {
		c.renderer.SetStretchRatio(c.sample.RenderRatio())
	}
	return c.sample
}

// GetStretch returns the current stretch ratio, or 0 without a joint.
func (c *Controller) GetStretch() float64 {
	if c.phase != Active {
		return 0
	}
	return c.rt.Sample().Ratio
}

// Subscribe registers fn to be called on every teardown.
func (c *Controller) Subscribe(fn func(UnlinkEvent)) {
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) Phase() Phase     { return c.phase }
func (c *Controller) Params() Params   { return c.params }
func (c *Controller) LastCause() Cause { return c.lastCause }
func (c *Controller) Sample() Sample   { return c.sample }
func (c *Controller) IsActive() bool   { return c.phase == Active }

// Spec returns the spec of the active joint.
func (c *Controller) Spec() (Spec, bool) {
	if c.phase != Active {
		return Spec{}, false
	}
	return c.rt.Spec(), true
}

// Runtime returns the active joint runtime, or nil.
func (c *Controller) Runtime() *Runtime {
	if c.phase != Active {
		return nil
	}
	return c.rt
}

// Peers returns the linked peers of the active joint.
func (c *Controller) Peers() (source, target *link.Peer, ok bool) {
	if c.phase != Active {
		return nil, nil, false
	}
	return c.rt.Source(), c.rt.Target(), true
}
