package viz

import "github.com/charmbracelet/harmonica"

// Gauge eases a displayed value towards its target with a damped spring.
type Gauge struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func NewGauge(fps int, frequency, damping float64) *Gauge {
	return &Gauge{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

// Update moves the gauge one frame towards target and returns the new
// position.
func (g *Gauge) Update(target float64) float64 {
	g.pos, g.vel = g.spring.Update(g.pos, g.vel, target)
	return g.pos
}

func (g *Gauge) Value() float64 { return g.pos }

// Snap jumps to v without animating.
func (g *Gauge) Snap(v float64) {
	g.pos, g.vel = v, 0
}
