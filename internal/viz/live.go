package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"

	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/sim"
)

const (
	width           = 60
	height          = 20
	fps             = 60
	historyCapacity = 600
	maxShownEvents  = 4
	// stretch ratio at which the bar is full
	barFullRatio = 0.5
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// cableVisual is the renderer handed to the joint controller.
type cableVisual struct {
	ratio float64
}

func (c *cableVisual) SetStretchRatio(r float64) { c.ratio = r }

// Model steps a scenario and renders it.
type Model struct {
	cfg   *config.Config
	log   zerolog.Logger
	scene *sim.Scene

	visual *cableVisual
	gauge  *Gauge
	canvas *Canvas
	view   Viewport

	stretch      []float64
	tension      []float64
	running      bool
	unbreakable  bool
	stepsPerTick int
	err          error
	showHelp     bool
}

func NewModel(cfg *config.Config, log zerolog.Logger) (Model, error) {
	m := Model{
		cfg:          cfg,
		log:          log,
		gauge:        NewGauge(fps, 6.0, 0.8),
		canvas:       NewCanvas(width, height),
		running:      true,
		stepsPerTick: max(1, int(math.Round(1.0/fps/cfg.Dt))),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	m.visual = &cableVisual{ratio: 1}
	scene, err := sim.NewScene(m.cfg, sim.WithSceneLogger(m.log), sim.WithRenderer(m.visual))
	if err != nil {
		return err
	}
	m.scene = scene
	m.unbreakable = m.cfg.Unbreakable
	m.stretch = make([]float64, 0, historyCapacity)
	m.tension = make([]float64, 0, historyCapacity)
	m.err = nil
	m.gauge.Snap(0)
	m.view = FitScene(m.canvas, m.cfg)
	return nil
}

func (m Model) Scene() *sim.Scene { return m.scene }

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "u":
			m.scene.Ctrl.DropJoint()
		case "l":
			if err := m.scene.Link(); err != nil {
				m.err = err
			} else {
				m.err = nil
			}
		case "b":
			m.unbreakable = !m.unbreakable
			m.scene.Ctrl.AdjustJoint(m.unbreakable)
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, 64)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.scene.Done() {
			m.advance()
		}
		m.gauge.Update(m.scene.Ctrl.GetStretch() / barFullRatio)
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerTick && !m.scene.Done(); i++ {
		f, err := m.scene.Step()
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.stretch = appendCapped(m.stretch, f.Stretch.Ratio*100)
		m.tension = appendCapped(m.tension, f.Tension)
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusBroken.Render("ERROR")
	case m.scene.Done():
		return statusPaused.Render("DONE")
	case !m.running:
		return statusPaused.Render("PAUSED")
	case !m.scene.Ctrl.IsActive() && m.scene.Ctrl.LastCause() == joint.CausePhysics:
		return statusBroken.Render("SNAPPED")
	default:
		return statusRunning.Render("RUNNING")
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	ctrl := m.scene.Ctrl
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.cfg.Name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.stretch) > 1 {
		chart := asciigraph.Plot(m.stretch, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Stretch %"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.scene.Time()))
	row("Phase", ctrl.Phase().String())
	row("Stretch", joint.Describe(ctrl.GetStretch()))
	s.WriteString(labelStyle.Render("") + StretchBar(m.gauge.Value(), 20) + "\n")
	row("Render", fmt.Sprintf("x%.3f", m.visual.ratio))
	if len(m.tension) > 0 {
		row("Tension", fmt.Sprintf("%.0f N", m.tension[len(m.tension)-1]))
		row("", Sparkline(m.tension, 24))
	}
	if spec, ok := ctrl.Spec(); ok {
		row("Rest", fmt.Sprintf("%.2f m", spec.RestLength))
		row("Break", formatLimit(spec.BreakForce))
		row("Head", fmt.Sprintf("%.1f kg", ctrl.Runtime().HeadMass()))
	}
	row("Speed", fmt.Sprintf("%d steps/frame", m.stepsPerTick))

	events := m.scene.Events()
	if n := len(events); n > 0 {
		s.WriteString("\nEVENTS\n")
		for _, ev := range events[max(0, n-maxShownEvents):] {
			line := fmt.Sprintf("%6.2fs %-7s %s", ev.Time, ev.Kind, ev.Detail)
			s.WriteString(eventStyle.Render(line) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + statusBroken.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("─────────────────────\nSP:Pause U:Drop L:Link B:Unbreakable\nR:Restart +/-:Speed ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space  - Pause/Resume               ║
║  U      - Drop the cable             ║
║  L      - Link the configured peers  ║
║  B      - Toggle unbreakable         ║
║  +/-    - Simulation speed           ║
║  R      - Restart the scenario       ║
║  ?      - Toggle this help           ║
║  Q      - Quit                       ║
╚══════════════════════════════════════╝`

func formatLimit(v float64) string {
	if math.IsInf(v, 1) {
		return "unbreakable"
	}
	return fmt.Sprintf("%.0f N", v)
}

func (m Model) draw() {
	DrawScene(m.canvas, m.view, m.scene)
}

// FitScene frames the configured bodies of cfg on c.
func FitScene(c *Canvas, cfg *config.Config) Viewport {
	points := make([]mgl64.Vec3, 0, len(cfg.Bodies))
	for _, b := range cfg.Bodies {
		points = append(points, b.Position)
	}
	w, h := c.PixelSize()
	return FitViewport(points, w, h, 4)
}

// DrawScene renders bodies as boxes, filled when dynamic, and the cable as
// a line from the source anchor to the head. A cable at or below its rest
// length is dashed.
func DrawScene(c *Canvas, view Viewport, scene *sim.Scene) {
	c.Clear()
	for _, b := range scene.Config().Bodies {
		id, ok := scene.BodyID(b.Name)
		if !ok {
			continue
		}
		st, ok := scene.World.Body(id)
		if !ok {
			continue
		}
		x, y := view.Project(st.Position)
		if st.Static {
			c.DrawBox(x, y, 2)
		} else {
			c.FillBox(x, y, 1)
		}
	}

	rt := scene.Ctrl.Runtime()
	if rt == nil {
		return
	}
	a, b, ok := scene.World.JointAnchors(rt.SpringJoint())
	if !ok {
		return
	}
	x0, y0 := view.Project(a)
	x1, y1 := view.Project(b)
	if scene.Ctrl.Sample().Stretched() {
		c.DrawLine(x0, y0, x1, y1)
	} else {
		c.DrawDashed(x0, y0, x1, y1, 2)
	}
}
