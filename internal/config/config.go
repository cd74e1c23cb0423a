package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cablesim/internal/envforce"
	"github.com/san-kum/cablesim/internal/joint"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultLogLevel = "info"
	DefaultLinkType = "cable"
)

var ErrInvalidConfig = errors.New("config: invalid scenario")

// Event actions.
const (
	ActionLink        = "link"
	ActionUnlink      = "unlink"
	ActionUnbreakable = "unbreakable"
	ActionBreakable   = "breakable"
	ActionDestroy     = "destroy"
	ActionPush        = "push"
)

var actions = map[string]bool{
	ActionLink:        true,
	ActionUnlink:      true,
	ActionUnbreakable: true,
	ActionBreakable:   true,
	ActionDestroy:     true,
	ActionPush:        true,
}

// Config is a cable scenario: a set of bodies, the peers they carry, the
// cable parameters and a timeline of events.
type Config struct {
	Name        string               `yaml:"name"`
	Dt          float64              `yaml:"dt"`
	Duration    float64              `yaml:"duration"`
	LogLevel    string               `yaml:"log_level"`
	Cable       joint.Params         `yaml:"cable"`
	Unbreakable bool                 `yaml:"unbreakable"`
	Environment envforce.Environment `yaml:"environment"`
	Bodies      []BodyConfig         `yaml:"bodies"`
	Peers       []PeerConfig         `yaml:"peers"`
	Link        LinkConfig           `yaml:"link"`
	Events      []EventConfig        `yaml:"events"`
}

type BodyConfig struct {
	Name        string     `yaml:"name"`
	Mass        float64    `yaml:"mass"`
	Position    mgl64.Vec3 `yaml:"position"`
	Velocity    mgl64.Vec3 `yaml:"velocity"`
	Rotation    mgl64.Vec3 `yaml:"rotation"` // euler XYZ, degrees
	Static      bool       `yaml:"static"`
	AirDragMult float64    `yaml:"air_drag_mult"`
}

type PeerConfig struct {
	Name           string     `yaml:"name"`
	Body           string     `yaml:"body"`
	LinkType       string     `yaml:"link_type"`
	Node           string     `yaml:"node"`
	Anchor         mgl64.Vec3 `yaml:"anchor"`
	AnchorRotation mgl64.Vec3 `yaml:"anchor_rotation"` // euler XYZ, degrees
	Blocked        bool       `yaml:"blocked"`
}

// LinkConfig names the peers to link at t=0. An empty source means the
// scenario starts unlinked.
type LinkConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type EventConfig struct {
	At       float64    `yaml:"at"`
	Action   string     `yaml:"action"`
	Body     string     `yaml:"body,omitempty"`
	Velocity mgl64.Vec3 `yaml:"velocity,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "default",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		LogLevel:    DefaultLogLevel,
		Cable:       joint.DefaultParams(),
		Environment: envforce.Vacuum(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Quat converts an euler XYZ rotation in degrees to a quaternion.
func Quat(deg mgl64.Vec3) mgl64.Quat {
	if deg == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return mgl64.AnglesToQuat(
		mgl64.DegToRad(deg.X()),
		mgl64.DegToRad(deg.Y()),
		mgl64.DegToRad(deg.Z()),
		mgl64.XYZ)
}

func (c *Config) Body(name string) (BodyConfig, bool) {
	for _, b := range c.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyConfig{}, false
}

func (c *Config) Peer(name string) (PeerConfig, bool) {
	for _, p := range c.Peers {
		if p.Name == name {
			return p, true
		}
	}
	return PeerConfig{}, false
}

// Steps is the number of fixed steps the scenario runs for.
func (c *Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.Dt)
	}
	if !(c.Duration >= c.Dt) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration %v shorter than dt %v", ErrInvalidConfig, c.Duration, c.Dt)
	}
	if err := c.Cable.Validate(); err != nil {
		return err
	}

	bodies := make(map[string]bool, len(c.Bodies))
	for _, b := range c.Bodies {
		if b.Name == "" {
			return fmt.Errorf("%w: body without name", ErrInvalidConfig)
		}
		if bodies[b.Name] {
			return fmt.Errorf("%w: duplicate body %q", ErrInvalidConfig, b.Name)
		}
		if !(b.Mass > 0) {
			return fmt.Errorf("%w: body %q mass must be positive", ErrInvalidConfig, b.Name)
		}
		bodies[b.Name] = true
	}

	peers := make(map[string]bool, len(c.Peers))
	for _, p := range c.Peers {
		if p.Name == "" {
			return fmt.Errorf("%w: peer without name", ErrInvalidConfig)
		}
		if peers[p.Name] {
			return fmt.Errorf("%w: duplicate peer %q", ErrInvalidConfig, p.Name)
		}
		if !bodies[p.Body] {
			return fmt.Errorf("%w: peer %q on unknown body %q", ErrInvalidConfig, p.Name, p.Body)
		}
		peers[p.Name] = true
	}

	if c.Link.Source != "" || c.Link.Target != "" {
		if !peers[c.Link.Source] || !peers[c.Link.Target] {
			return fmt.Errorf("%w: link %q -> %q names unknown peers", ErrInvalidConfig, c.Link.Source, c.Link.Target)
		}
	}

	for i, ev := range c.Events {
		if !actions[ev.Action] {
			return fmt.Errorf("%w: event %d has unknown action %q", ErrInvalidConfig, i, ev.Action)
		}
		if ev.At < 0 || ev.At > c.Duration {
			return fmt.Errorf("%w: event %d at %v outside [0, %v]", ErrInvalidConfig, i, ev.At, c.Duration)
		}
		switch ev.Action {
		case ActionDestroy, ActionPush:
			if !bodies[ev.Body] {
				return fmt.Errorf("%w: event %d on unknown body %q", ErrInvalidConfig, i, ev.Body)
			}
		case ActionLink:
			if c.Link.Source == "" {
				return fmt.Errorf("%w: event %d links without a configured link", ErrInvalidConfig, i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	out.Peers = append([]PeerConfig(nil), c.Peers...)
	out.Events = append([]EventConfig(nil), c.Events...)
	return &out
}
