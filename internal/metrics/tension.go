package metrics

import (
	"math"

	"github.com/san-kum/cablesim/internal/sim"
)

type PeakTension struct {
	name string
	peak float64
}

func NewPeakTension() *PeakTension {
	return &PeakTension{name: "peak_tension"}
}

func (p *PeakTension) Name() string { return p.name }

func (p *PeakTension) Observe(f sim.Frame) {
	p.peak = math.Max(p.peak, f.Tension)
}

func (p *PeakTension) Value() float64 { return p.peak }
func (p *PeakTension) Reset()         { p.peak = 0 }

// Headroom is 1 minus the share of the break force used at peak tension.
// It drops below 0 once the cable was loaded past its limit.
type Headroom struct {
	name  string
	limit float64
	peak  float64
}

func NewHeadroom(limit float64) *Headroom {
	return &Headroom{name: "headroom", limit: limit}
}

func (h *Headroom) Name() string { return h.name }

func (h *Headroom) Observe(f sim.Frame) {
	h.peak = math.Max(h.peak, f.Tension)
}

func (h *Headroom) Value() float64 {
	if h.limit <= 0 || math.IsInf(h.limit, 1) {
		return 1.0
	}
	return 1.0 - h.peak/h.limit
}

func (h *Headroom) Reset() { h.peak = 0 }

// Standard returns the metric set the CLI records for every run.
func Standard(breakForce float64) []sim.Metric {
	return []sim.Metric{
		NewMaxStretch(),
		NewMeanStretch(),
		NewStretchedFraction(),
		NewLinkedTime(),
		NewPeakTension(),
		NewHeadroom(breakForce),
	}
}
