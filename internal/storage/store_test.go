package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Scenario: "test",
		Times:    []float64{0.0, 0.01},
		Frames: []sim.Frame{
			{Time: 0, Phase: joint.Active, Stretch: joint.Sample{Current: 10, Max: 10}},
			{Time: 0.01, Phase: joint.Active, Stretch: joint.Sample{Current: 11, Max: 10, Ratio: 0.1}, Tension: 1000},
		},
		Events:     []sim.Event{{Time: 0, Kind: sim.EventLink, Detail: "a -> b"}},
		Metrics:    map[string]float64{"max_stretch": 0.1},
		Links:      []link.Snapshot{{Peer: "a", State: link.Linked, LinkedPeer: "b"}, {Peer: "b", State: link.Linked, LinkedPeer: "a"}},
		StepsTaken: 1,
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "test"
	return cfg
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scenario != "test" {
		t.Errorf("expected scenario 'test', got '%s'", meta.Scenario)
	}
	if meta.Cable != joint.DefaultParams() {
		t.Errorf("expected default cable params, got %+v", meta.Cable)
	}
	if meta.Metrics["max_stretch"] != 0.1 {
		t.Errorf("expected max_stretch 0.1, got %f", meta.Metrics["max_stretch"])
	}
	if len(meta.Events) != 1 || meta.Events[0].Kind != sim.EventLink {
		t.Errorf("expected link event, got %+v", meta.Events)
	}

	frames, err := st.LoadFrames(runID)
	if err != nil {
		t.Fatalf("load frames failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[1].Stretch.Ratio != 0.1 || frames[1].Tension != 1000 || frames[1].Phase != joint.Active {
		t.Errorf("frame not restored: %+v", frames[1])
	}

	links, err := st.LoadLinks(runID)
	if err != nil {
		t.Fatalf("load links failed: %v", err)
	}
	if len(links) != 2 || links[0].LinkedPeer != "b" || links[0].State != link.Linked {
		t.Errorf("links not restored: %+v", links)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if first == second {
		t.Errorf("run ids collide: %s", first)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}

	latest, err := st.Latest()
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest != second {
		t.Errorf("expected latest %s, got %s", second, latest)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "stretch.csv", "links.json"} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadFrames("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := st.SaveLinks("nope", nil); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.Latest(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveLinksRestoresRegistry(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reg := link.NewRegistry()
	a := link.NewPeer("a", 1, "cable", "top", link.IdentityPose())
	b := link.NewPeer("b", 2, "cable", "top", link.IdentityPose())
	reg.Add(a)
	reg.Add(b)
	if err := reg.Link(a, b); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveLinks(runID, reg.Snapshot()); err != nil {
		t.Fatalf("save links failed: %v", err)
	}

	fresh := link.NewRegistry()
	a2 := link.NewPeer("a", 1, "cable", "top", link.IdentityPose())
	b2 := link.NewPeer("b", 2, "cable", "top", link.IdentityPose())
	fresh.Add(a2)
	fresh.Add(b2)

	snaps, err := st.LoadLinks(runID)
	if err != nil {
		t.Fatalf("load links failed: %v", err)
	}
	if err := fresh.Restore(snaps); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if a2.OtherPeer() != b2 {
		t.Error("restored link does not connect a and b")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.ID != runID || len(data.Stretch) != 2 || data.Stretch[1] != 0.1 {
		t.Errorf("unexpected export: %+v", data)
	}
	if len(data.Phases) != 2 || data.Phases[0] != "active" {
		t.Errorf("unexpected phases: %v", data.Phases)
	}
	if len(data.Links) != 2 {
		t.Errorf("expected 2 link snapshots, got %d", len(data.Links))
	}
}
