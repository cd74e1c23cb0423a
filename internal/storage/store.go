package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	stretchFile  = "stretch.csv"
	linksFile    = "links.json"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Cable       joint.Params       `json:"cable"`
	Unbreakable bool               `json:"unbreakable"`
	Metrics     map[string]float64 `json:"metrics"`
	Events      []sim.Event        `json:"events"`
	Dropped     int                `json:"dropped,omitempty"`
}

// Save writes a run directory with metadata, the stretch series and the
// final link state, and returns the run id.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	now := time.Now()
	runID, runDir, err := s.newRunDir(cfg.Name, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    cfg.Name,
		Timestamp:   now,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Steps:       result.StepsTaken,
		Cable:       cfg.Cable,
		Unbreakable: cfg.Unbreakable,
		Metrics:     result.Metrics,
		Events:      result.Events,
		Dropped:     result.Dropped,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, stretchFile), result.Frames); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, linksFile), result.Links); err != nil {
		return "", err
	}
	return runID, nil
}

// newRunDir creates <scenario>_<unix>, adding a counter when a run with the
// same name was saved in the same second.
func (s *Store) newRunDir(scenario string, now time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", scenario, now.Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	var meta RunMetadata
	if err := s.readJSON(runID, metadataFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[len(runs)-1].ID, nil
}

// LoadFrames reads the stretch series back.
func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, stretchFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Frame{}, nil
	}

	frames := make([]sim.Frame, 0, len(records)-1)
	for i, record := range records[1:] {
		f, err := parseFrame(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", stretchFile, i+2, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (s *Store) SaveLinks(runID string, snaps []link.Snapshot) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.baseDir, runID, linksFile), snaps)
}

func (s *Store) LoadLinks(runID string) ([]link.Snapshot, error) {
	var snaps []link.Snapshot
	if err := s.readJSON(runID, linksFile, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *Store) readJSON(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s/%s: %w", runID, name, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var frameHeader = []string{"time", "phase", "current", "max", "ratio", "tension"}

func writeFrames(path string, frames []sim.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(frameHeader); err != nil {
		return err
	}
	for _, f := range frames {
		row := []string{
			formatFloat(f.Time),
			f.Phase.String(),
			formatFloat(f.Stretch.Current),
			formatFloat(f.Stretch.Max),
			formatFloat(f.Stretch.Ratio),
			formatFloat(f.Tension),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parseFrame(record []string) (sim.Frame, error) {
	if len(record) != len(frameHeader) {
		return sim.Frame{}, fmt.Errorf("expected %d fields, got %d", len(frameHeader), len(record))
	}
	var vals [5]float64
	for i, j := range []int{0, 2, 3, 4, 5} {
		v, err := strconv.ParseFloat(record[j], 64)
		if err != nil {
			return sim.Frame{}, err
		}
		vals[i] = v
	}
	phase, err := joint.ParsePhase(record[1])
	if err != nil {
		return sim.Frame{}, err
	}
	return sim.Frame{
		Time:    vals[0],
		Phase:   phase,
		Stretch: joint.Sample{Current: vals[1], Max: vals[2], Ratio: vals[3]},
		Tension: vals[4],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
