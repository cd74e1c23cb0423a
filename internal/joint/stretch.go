package joint

import "fmt"

// MinViableStretch is the stretch, in meters, below which a cable counts as
// not stretched.
const MinViableStretch = 0.0001

// Sample is the stretch state of a joint at one step.
type Sample struct {
	Current float64
	Max     float64
	Ratio   float64
}

func (s Sample) Stretched() bool { return s.Ratio > 0 }

// Measure returns the stretch ratio: 0 when the cable is within
// MinViableStretch of its rest length, (current-rest)/rest otherwise. A cable
// of original length 100 and current length 110 has ratio 0.1.
func Measure(current, rest float64) float64 {
	stretch := current - rest
	if stretch < MinViableStretch || rest <= 0 {
		return 0
	}
	return stretch / rest
}

// NewSample measures a joint whose ends are at distance current.
func NewSample(current, rest float64) Sample {
	return Sample{Current: current, Max: rest, Ratio: Measure(current, rest)}
}

// RenderRatio is the length factor a renderer should stretch the cable
// texture by: current/max when longer than max, 1 otherwise.
func (s Sample) RenderRatio() float64 {
	if s.Max <= 0 || s.Current <= s.Max {
		return 1
	}
	return s.Current / s.Max
}

// Describe classifies a stretch ratio for display.
func Describe(ratio float64) string {
	if ratio <= MinViableStretch {
		return "Cable is not stretched"
	}
	return fmt.Sprintf("Cable stretch: %.2f%%", ratio*100)
}

// StretchRenderer is an optional visual that follows the cable stretch.
// It is resolved by the caller and handed to CreateJoint.
type StretchRenderer interface {
	SetStretchRatio(ratio float64)
}
