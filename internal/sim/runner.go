package sim

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/san-kum/cablesim/internal/config"
)

type Runner struct {
	log       zerolog.Logger
	meter     metric.Meter
	metrics   []Metric
	observers []Observer
}

func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log, meter: meter()}
}

// SetMeter replaces the OpenTelemetry meter, the global one by default.
func (r *Runner) SetMeter(m metric.Meter) { r.meter = m }

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Run builds the scenario and steps it to the end. On cancellation the
// partial result is returned together with the context error.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	scene, err := NewScene(cfg, WithSceneLogger(r.log))
	if err != nil {
		return nil, err
	}
	tel, err := newTelemetry(r.meter, cfg.Name)
	if err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &Result{
		Scenario: cfg.Name,
		Times:    make([]float64, 0, steps+1),
		Frames:   make([]Frame, 0, steps+1),
		Metrics:  make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	first := scene.Frame()
	result.Times = append(result.Times, first.Time)
	result.Frames = append(result.Frames, first)

	r.log.Info().Str("scenario", cfg.Name).Int("steps", steps).Msg("run started")

	finish := func() {
		result.Events = scene.Events()
		tel.record(context.WithoutCancel(ctx), result.Events)
		result.Links = scene.Peers.Snapshot()
		result.Dropped = scene.World.Dropped()
		for _, m := range r.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	for !scene.Done() {
		select {
		case <-ctx.Done():
			finish()
			return result, ctx.Err()
		default:
		}

		f, err := scene.Step()
		if err != nil {
			finish()
			return result, err
		}
		tel.step(ctx, f)
		for _, m := range r.metrics {
			m.Observe(f)
		}
		for _, obs := range r.observers {
			obs.OnStep(f)
		}
		result.Times = append(result.Times, f.Time)
		result.Frames = append(result.Frames, f)
		result.StepsTaken++
	}

	finish()
	r.log.Info().
		Str("scenario", cfg.Name).
		Int("steps", result.StepsTaken).
		Int("events", len(result.Events)).
		Msg("run finished")
	return result, nil
}
