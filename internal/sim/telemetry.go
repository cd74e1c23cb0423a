package sim

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/cablesim/internal/sim"

// meter uses the global provider, which is a no-op unless the binary
// installs one.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type telemetry struct {
	steps    metric.Int64Counter
	events   metric.Int64Counter
	tension  metric.Float64Histogram
	scenario attribute.KeyValue
}

func newTelemetry(m metric.Meter, scenario string) (*telemetry, error) {
	t := &telemetry{scenario: attribute.String("scenario", scenario)}

	var err error
	t.steps, err = m.Int64Counter(
		"cablesim.steps",
		metric.WithDescription("Simulation steps taken"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	t.events, err = m.Int64Counter(
		"cablesim.events",
		metric.WithDescription("Scenario events by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	t.tension, err = m.Float64Histogram(
		"cablesim.cable.tension",
		metric.WithDescription("Cable tension while linked"),
		metric.WithUnit("N"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tension histogram: %w", err)
	}
	return t, nil
}

func (t *telemetry) step(ctx context.Context, f Frame) {
	attrs := metric.WithAttributes(t.scenario)
	t.steps.Add(ctx, 1, attrs)
	if f.Linked() {
		t.tension.Record(ctx, f.Tension, attrs)
	}
}

func (t *telemetry) record(ctx context.Context, events []Event) {
	for _, ev := range events {
		t.events.Add(ctx, 1, metric.WithAttributes(t.scenario, attribute.String("kind", ev.Kind)))
	}
}
