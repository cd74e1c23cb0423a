package analysis

import (
	"errors"
	"fmt"
	"math"
)

var ErrShortSeries = errors.New("analysis: series too short")

const minSamples = 16

// Oscillation summarizes the dominant bounce in a stretch series.
type Oscillation struct {
	Frequency float64 // Hz
	Amplitude float64 // peak deviation from the mean
	Mean      float64
	Samples   int
}

func (o Oscillation) String() string {
	if o.Frequency == 0 {
		return fmt.Sprintf("steady at %.4f", o.Mean)
	}
	return fmt.Sprintf("%.2f Hz, amplitude %.4f around %.4f", o.Frequency, o.Amplitude, o.Mean)
}

// Analyze finds the dominant frequency of series sampled every dt seconds.
// Only the most recent power-of-two samples are transformed. Non-finite
// samples are treated as the mean.
func Analyze(series []float64, dt float64) (Oscillation, error) {
	if !(dt > 0) {
		return Oscillation{}, fmt.Errorf("analysis: dt must be positive, got %v", dt)
	}
	n := floorPow2(len(series))
	if n < minSamples {
		return Oscillation{}, fmt.Errorf("%w: %d samples", ErrShortSeries, len(series))
	}
	window := series[len(series)-n:]

	var sum float64
	var count int
	for _, v := range window {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
			count++
		}
	}
	if count == 0 {
		return Oscillation{}, fmt.Errorf("%w: no finite samples", ErrShortSeries)
	}
	mean := sum / float64(count)

	centered := make([]float64, n)
	var amp float64
	for i, v := range window {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		centered[i] = v - mean
		amp = math.Max(amp, math.Abs(centered[i]))
	}

	osc := Oscillation{Amplitude: amp, Mean: mean, Samples: n}
	if amp < 1e-9 {
		return osc, nil
	}

	ps := PowerSpectrum(centered)
	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	osc.Frequency = float64(peak) / (float64(n) * dt)
	return osc, nil
}
