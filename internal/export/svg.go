// Package export renders runs and canvases as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/cablesim/internal/viz"
)

const background = "#0a0a0a"

// CanvasToSVG draws every set sub-pixel of a Braille canvas as a dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.PixelSize()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="#00ff00">
`, width, height, width, height, background)

	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Series is one line of a chart.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// ChartToSVG plots series against times, each scaled to its own range and
// stacked in its own band. Non-finite values break the line.
func ChartToSVG(times []float64, series []Series, width, height int) string {
	if len(times) < 2 || len(series) == 0 {
		return ""
	}
	t0, t1 := times[0], times[len(times)-1]
	if t1 <= t0 {
		t1 = t0 + 1
	}
	band := float64(height) / float64(len(series))

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for i, s := range series {
		lo, hi := bounds(s.Values)
		rng := hi - lo
		if rng == 0 {
			rng = 1
		}
		top := float64(i) * band
		pad := band * 0.1

		fmt.Fprintf(&sb, "<text x=\"4\" y=\"%.1f\" fill=\"%s\" font-size=\"12\">%s</text>\n", top+14, s.Color, s.Label)
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, s.Color)
		move := true
		for k, v := range s.Values {
			if k >= len(times) {
				break
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				move = true
				continue
			}
			x := (times[k] - t0) / (t1 - t0) * float64(width)
			y := top + band - pad - (v-lo)/rng*(band-2*pad)
			if move {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
				move = false
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}
