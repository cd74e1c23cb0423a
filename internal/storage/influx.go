package storage

import (
	"bufio"
	"io"
	"strings"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	stretchMeasurement = "cable_stretch"
	eventMeasurement   = "cable_event"
)

// ExportLineProtocol writes a stored run as InfluxDB line protocol, one
// cable_stretch point per frame and one cable_event point per event.
// Simulation time is offset from the run's timestamp.
func (s *Store) ExportLineProtocol(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	tags := map[string]string{"run": meta.ID, "scenario": meta.Scenario}
	at := func(t float64) time.Time {
		return meta.Timestamp.Add(time.Duration(t * float64(time.Second)))
	}

	bw := bufio.NewWriter(w)
	for _, f := range frames {
		p := influxdb2_write.NewPoint(stretchMeasurement, tags, map[string]any{
			"ratio":   f.Stretch.Ratio,
			"current": f.Stretch.Current,
			"max":     f.Stretch.Max,
			"tension": f.Tension,
			"phase":   f.Phase.String(),
		}, at(f.Time))
		if err := writePoint(bw, p); err != nil {
			return err
		}
	}
	for _, ev := range meta.Events {
		p := influxdb2_write.NewPointWithMeasurement(eventMeasurement).
			AddTag("run", meta.ID).
			AddTag("scenario", meta.Scenario).
			AddTag("kind", ev.Kind).
			AddField("detail", ev.Detail).
			AddField("force", ev.Force).
			SetTime(at(ev.Time))
		if err := writePoint(bw, p); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writePoint writes exactly one line per point.
func writePoint(w io.Writer, p *influxdb2_write.Point) error {
	line := strings.TrimRight(influxdb2_write.PointToLineProtocol(p, time.Nanosecond), "\n")
	_, err := io.WriteString(w, line+"\n")
	return err
}
