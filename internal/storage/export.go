package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Times   []float64       `json:"times"`
	Stretch []float64       `json:"stretch"`
	Tension []float64       `json:"tension"`
	Phases  []string        `json:"phases"`
	Links   []link.Snapshot `json:"links"`
}

// ExportJSON writes a stored run as a single JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}
	links, err := s.LoadLinks(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Times:       make([]float64, len(frames)),
		Stretch:     make([]float64, len(frames)),
		Tension:     make([]float64, len(frames)),
		Phases:      make([]string, len(frames)),
		Links:       links,
	}
	fill(&data, frames)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func fill(data *ExportData, frames []sim.Frame) {
	for i, f := range frames {
		data.Times[i] = f.Time
		data.Stretch[i] = f.Stretch.Ratio
		data.Tension[i] = f.Tension
		data.Phases[i] = f.Phase.String()
	}
}
