package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cablesim/internal/joint"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.Cable != joint.DefaultParams() {
		t.Errorf("expected default cable params, got %+v", cfg.Cable)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("hanging")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Link.Source != "winch.hook" {
		t.Errorf("expected winch.hook source, got %s", cfg.Link.Source)
	}

	// Presets hand out copies.
	cfg.Bodies[1].Mass = 1e6
	if GetPreset("hanging").Bodies[1].Mass == 1e6 {
		t.Error("preset was mutated through a returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("presets not sorted: %v", names)
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			if err := GetPreset(name).Validate(); err != nil {
				t.Errorf("preset %s: %v", name, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"nan dt", func(c *Config) { c.Dt = math.NaN() }},
		{"duration below dt", func(c *Config) { c.Duration = c.Dt / 2 }},
		{"duplicate body", func(c *Config) { c.Bodies = append(c.Bodies, c.Bodies[0]) }},
		{"massless body", func(c *Config) { c.Bodies[1].Mass = 0 }},
		{"peer on unknown body", func(c *Config) { c.Peers[0].Body = "ghost" }},
		{"duplicate peer", func(c *Config) { c.Peers[1].Name = c.Peers[0].Name }},
		{"link to unknown peer", func(c *Config) { c.Link.Target = "ghost" }},
		{"unknown action", func(c *Config) { c.Events = []EventConfig{{At: 1, Action: "explode"}} }},
		{"event after end", func(c *Config) { c.Events = []EventConfig{{At: 99, Action: ActionUnlink}} }},
		{"destroy unknown body", func(c *Config) { c.Events = []EventConfig{{At: 1, Action: ActionDestroy, Body: "ghost"}} }},
		{"link without link config", func(c *Config) {
			c.Link = LinkConfig{}
			c.Events = []EventConfig{{At: 1, Action: ActionLink}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetPreset("hanging")
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateCableParams(t *testing.T) {
	cfg := GetPreset("hanging")
	cfg.Cable.Spring = -1
	if err := cfg.Validate(); !errors.Is(err, joint.ErrInvalidParams) {
		t.Errorf("expected joint.ErrInvalidParams, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "scenario.yaml")

	want := GetPreset("tug")
	g.Expect(Save(path, want)).To(Succeed())

	got, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Bodies).To(Equal(want.Bodies))
	g.Expect(got.Peers).To(Equal(want.Peers))
	g.Expect(got.Events).To(Equal(want.Events))
	g.Expect(got.Cable).To(Equal(want.Cable))
	g.Expect(got.Link).To(Equal(want.Link))
}

func TestLoadKeepsDefaults(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "partial.yaml")
	g.Expect(os.WriteFile(path, []byte("dt: 0.02\ncable:\n  slack: 1.5\n"), 0644)).To(Succeed())

	cfg, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Dt).To(Equal(0.02))
	g.Expect(cfg.Duration).To(Equal(DefaultDuration))
	g.Expect(cfg.Cable.Slack).To(Equal(1.5))
	g.Expect(cfg.Cable.Spring).To(Equal(joint.DefaultSpring))
	g.Expect(cfg.Environment.Gee.Y()).To(Equal(-9.81))
}

func TestQuat(t *testing.T) {
	g := NewWithT(t)
	g.Expect(Quat(mgl64.Vec3{})).To(Equal(mgl64.QuatIdent()))

	q := Quat(mgl64.Vec3{0, 0, 90})
	v := q.Rotate(mgl64.Vec3{1, 0, 0})
	g.Expect(v.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9)).To(BeTrue())
}

func TestSteps(t *testing.T) {
	cfg := &Config{Dt: 0.01, Duration: 10}
	if cfg.Steps() != 1000 {
		t.Errorf("expected 1000 steps, got %d", cfg.Steps())
	}
}
