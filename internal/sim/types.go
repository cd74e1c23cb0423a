package sim

import (
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
)

// Frame is what the runner records at one step.
type Frame struct {
	Time    float64
	Phase   joint.Phase
	Stretch joint.Sample
	// Tension is the reaction force of the compliant segment.
	Tension float64
}

func (f Frame) Linked() bool { return f.Phase == joint.Active }

// Event kinds recorded in a Result.
const (
	EventLink       = "link"
	EventLinkFailed = "link_failed"
	EventUnlink     = "unlink"
	EventAdjust     = "adjust"
	EventDestroy    = "destroy"
	EventPush       = "push"
)

type Event struct {
	Time   float64 `json:"time"`
	Kind   string  `json:"kind"`
	Detail string  `json:"detail,omitempty"`
	Force  float64 `json:"force,omitempty"`
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

type Result struct {
	Scenario   string
	Times      []float64
	Frames     []Frame
	Events     []Event
	Metrics    map[string]float64
	Links      []link.Snapshot
	StepsTaken int
	// Dropped counts environment force contributions discarded as
	// non-finite.
	Dropped int
}

// Stretches returns the stretch ratio series.
func (r *Result) Stretches() []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Stretch.Ratio
	}
	return out
}

// Tensions returns the tension series.
func (r *Result) Tensions() []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Tension
	}
	return out
}
