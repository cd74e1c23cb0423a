package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// PixelSize is the canvas size in sub-pixels.
func (c *Canvas) PixelSize() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the sub-pixel at (x, y). Points off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDashed draws every other run of dash sub-pixels of a line. A slack
// cable is drawn this way.
func (c *Canvas) DrawDashed(x0, y0, x1, y1, dash int) {
	n := max(absInt(x1-x0), absInt(y1-y0))
	if n == 0 || dash <= 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= n; i++ {
		if (i/dash)%2 == 1 {
			continue
		}
		t := float64(i) / float64(n)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		c.Set(x, y)
	}
}

// FillBox fills the square of half-size r around (x, y).
func (c *Canvas) FillBox(x, y, r int) {
	for i := -r; i <= r; i++ {
		for j := -r; j <= r; j++ {
			c.Set(x+i, y+j)
		}
	}
}

// DrawBox outlines the square of half-size r around (x, y).
func (c *Canvas) DrawBox(x, y, r int) {
	c.DrawLine(x-r, y-r, x+r, y-r)
	c.DrawLine(x+r, y-r, x+r, y+r)
	c.DrawLine(x+r, y+r, x-r, y+r)
	c.DrawLine(x-r, y+r, x-r, y-r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Viewport maps the world XY plane onto canvas sub-pixels, Y up.
type Viewport struct {
	Center mgl64.Vec2
	Scale  float64 // sub-pixels per meter
	W, H   int
}

// FitViewport frames points with margin meters around them.
func FitViewport(points []mgl64.Vec3, w, h int, margin float64) Viewport {
	if len(points) == 0 {
		return Viewport{Scale: 1, W: w, H: h}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X()), math.Max(maxX, p.X())
		minY, maxY = math.Min(minY, p.Y()), math.Max(maxY, p.Y())
	}
	spanX := maxX - minX + 2*margin
	spanY := maxY - minY + 2*margin
	scale := math.Min(float64(w)/spanX, float64(h)/spanY)
	if math.IsInf(scale, 0) || math.IsNaN(scale) || scale <= 0 {
		scale = 1
	}
	return Viewport{
		Center: mgl64.Vec2{(minX + maxX) / 2, (minY + maxY) / 2},
		Scale:  scale,
		W:      w,
		H:      h,
	}
}

func (v Viewport) Project(p mgl64.Vec3) (int, int) {
	x := float64(v.W)/2 + (p.X()-v.Center.X())*v.Scale
	y := float64(v.H)/2 - (p.Y()-v.Center.Y())*v.Scale
	return int(math.Round(x)), int(math.Round(y))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
