package metrics

import (
	"math"

	"github.com/san-kum/cablesim/internal/sim"
)

// MaxStretch is the largest stretch ratio seen.
type MaxStretch struct {
	name string
	max  float64
}

func NewMaxStretch() *MaxStretch {
	return &MaxStretch{name: "max_stretch"}
}

func (m *MaxStretch) Name() string { return m.name }

func (m *MaxStretch) Observe(f sim.Frame) {
	m.max = math.Max(m.max, f.Stretch.Ratio)
}

func (m *MaxStretch) Value() float64 { return m.max }
func (m *MaxStretch) Reset()         { m.max = 0 }

// MeanStretch averages the stretch ratio over the frames with a live joint.
type MeanStretch struct {
	name    string
	sum     float64
	samples int
}

func NewMeanStretch() *MeanStretch {
	return &MeanStretch{name: "mean_stretch"}
}

func (m *MeanStretch) Name() string { return m.name }

func (m *MeanStretch) Observe(f sim.Frame) {
	if !f.Linked() {
		return
	}
	m.sum += f.Stretch.Ratio
	m.samples++
}

func (m *MeanStretch) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanStretch) Reset() {
	m.sum = 0
	m.samples = 0
}

// StretchedFraction is the share of linked frames in which the cable was
// stretched.
type StretchedFraction struct {
	name      string
	stretched int
	samples   int
}

func NewStretchedFraction() *StretchedFraction {
	return &StretchedFraction{name: "stretched_fraction"}
}

func (s *StretchedFraction) Name() string { return s.name }

func (s *StretchedFraction) Observe(f sim.Frame) {
	if !f.Linked() {
		return
	}
	s.samples++
	if f.Stretch.Stretched() {
		s.stretched++
	}
}

func (s *StretchedFraction) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.stretched) / float64(s.samples)
}

func (s *StretchedFraction) Reset() {
	s.stretched = 0
	s.samples = 0
}

// LinkedTime is the time, in seconds, the cable spent linked.
type LinkedTime struct {
	name  string
	last  float64
	first bool
	total float64
}

func NewLinkedTime() *LinkedTime {
	return &LinkedTime{name: "linked_time", first: true}
}

func (l *LinkedTime) Name() string { return l.name }

func (l *LinkedTime) Observe(f sim.Frame) {
	if !l.first && f.Linked() {
		l.total += f.Time - l.last
	}
	l.first = false
	l.last = f.Time
}

func (l *LinkedTime) Value() float64 { return l.total }

func (l *LinkedTime) Reset() {
	l.last = 0
	l.first = true
	l.total = 0
}
