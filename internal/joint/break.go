package joint

// Cause tells why a link went away.
type Cause int

const (
	CauseNone Cause = iota
	// CauseCommanded is an explicit DropJoint.
	CauseCommanded
	// CausePhysics is a physical overload signalled by the engine.
	CausePhysics
	// CauseDestroyed is the owning body going away.
	CauseDestroyed
)

func (c Cause) String() string {
	switch c {
	case CauseCommanded:
		return "commanded"
	case CausePhysics:
		return "physics"
	case CauseDestroyed:
		return "destroyed"
	default:
		return "none"
	}
}

// UnlinkEvent is published when an active joint is torn down.
type UnlinkEvent struct {
	Cause  Cause
	Force  float64
	Source string
	Target string
	// Last is the stretch sample taken on the step before teardown.
	Last Sample
}

// HandleBreak reacts to the engine breaking the compliant segment. Signals
// that arrive when no joint is active, including repeats for a joint that
// already broke, are ignored.
func (c *Controller) HandleBreak(force float64) {
	c.teardown(CausePhysics, force)
}

// teardown is the single exit from Active. Every path out of Active goes
// through here, so a break signal racing a DropJoint releases the runtime
// exactly once.
func (c *Controller) teardown(cause Cause, force float64) bool {
	if c.phase != Active {
		return false
	}
	c.phase = TearingDown

	rt := c.rt
	c.rt = nil
	ev := UnlinkEvent{
		Cause:  cause,
		Force:  force,
		Source: rt.Source().ID,
		Target: rt.Target().ID,
		Last:   c.sample,
	}

	rt.Release()
	c.peers.Unlink(rt.Source())
	if c.renderer != nil {
		c.renderer.SetStretchRatio(1)
		c.renderer = nil
	}
	c.sample = Sample{}
	c.lastCause = cause
	c.phase = NoJoint

	e := c.log.Info()
	if cause == CausePhysics {
		e = c.log.Warn()
	}
	e.Str("source", ev.Source).
		Str("target", ev.Target).
		Stringer("cause", cause).
		Float64("force", force).
		Msg("cable joint dropped")

	for _, fn := range c.subscribers {
		fn(ev)
	}
	return true
}
