package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/cablesim/internal/envforce"
	"github.com/san-kum/cablesim/internal/joint"
)

// hangingLoad is a static winch with a load on a cable below it.
func hangingLoad(name string, loadMass float64) *Config {
	return &Config{
		Name: name, Dt: 0.01, Duration: 10.0, LogLevel: DefaultLogLevel,
		Cable:       joint.DefaultParams(),
		Environment: envforce.Vacuum(),
		Bodies: []BodyConfig{
			{Name: "winch", Mass: 100, Static: true},
			{Name: "load", Mass: loadMass, Position: mgl64.Vec3{0, -5, 0}, AirDragMult: 1},
		},
		Peers: []PeerConfig{
			{Name: "winch.hook", Body: "winch", LinkType: DefaultLinkType, Node: "bottom"},
			{Name: "load.eye", Body: "load", LinkType: DefaultLinkType, Node: "top"},
		},
		Link: LinkConfig{Source: "winch.hook", Target: "load.eye"},
	}
}

func withEvents(cfg *Config, events ...EventConfig) *Config {
	cfg.Events = events
	return cfg
}

var Presets = map[string]*Config{
	"hanging": hangingLoad("hanging", 10),
	"snap":    hangingLoad("snap", 500),
	"hold": withEvents(func() *Config {
		cfg := hangingLoad("hold", 500)
		cfg.Unbreakable = true
		return cfg
	}(), EventConfig{At: 4, Action: ActionBreakable}),
	"slack": func() *Config {
		cfg := hangingLoad("slack", 10)
		cfg.Cable.Slack = 2
		return cfg
	}(),
	"drop": withEvents(hangingLoad("drop", 10),
		EventConfig{At: 3, Action: ActionUnlink},
		EventConfig{At: 3.5, Action: ActionLink}),
	"destroy": withEvents(hangingLoad("destroy", 10),
		EventConfig{At: 2, Action: ActionDestroy, Body: "load"}),
	"tug": {
		Name: "tug", Dt: 0.01, Duration: 20.0, LogLevel: DefaultLogLevel,
		Cable: joint.DefaultParams(),
		Bodies: []BodyConfig{
			{Name: "tug", Mass: 50, Velocity: mgl64.Vec3{3, 0, 0}},
			{Name: "barge", Mass: 50, Position: mgl64.Vec3{-10, 0, 0}},
		},
		Peers: []PeerConfig{
			{Name: "tug.stern", Body: "tug", LinkType: DefaultLinkType, Node: "stern", Anchor: mgl64.Vec3{-1, 0, 0}},
			{Name: "barge.bow", Body: "barge", LinkType: DefaultLinkType, Node: "bow", Anchor: mgl64.Vec3{1, 0, 0}},
		},
		Link: LinkConfig{Source: "tug.stern", Target: "barge.bow"},
		Events: []EventConfig{
			{At: 10, Action: ActionPush, Body: "tug", Velocity: mgl64.Vec3{40, 0, 0}},
		},
	},
	"drag": func() *Config {
		cfg := hangingLoad("drag", 10)
		cfg.Environment.AtmDensity = 1.2
		cfg.Environment.ApplyDrag = true
		cfg.Bodies[1].Velocity = mgl64.Vec3{8, 0, 0}
		return cfg
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
