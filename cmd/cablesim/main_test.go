package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/sim"
	"github.com/san-kum/cablesim/internal/storage"
)

func scenarioCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	configFile = ""
	cmd := &cobra.Command{Use: "test"}
	addScenarioFlags(cmd)
	for k, v := range flags {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	return cmd
}

func TestLoadScenarioPreset(t *testing.T) {
	cfg, err := loadScenario(scenarioCmd(t, nil), []string{"snap"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "snap" {
		t.Errorf("expected snap, got %s", cfg.Name)
	}
}

func TestLoadScenarioFlagsOverride(t *testing.T) {
	cmd := scenarioCmd(t, map[string]string{"dt": "0.02", "time": "2", "unbreakable": "true"})
	cfg, err := loadScenario(cmd, []string{"hanging"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dt != 0.02 || cfg.Duration != 2 || !cfg.Unbreakable {
		t.Errorf("flags not applied: dt=%f duration=%f unbreakable=%t", cfg.Dt, cfg.Duration, cfg.Unbreakable)
	}
	if config.GetPreset("hanging").Dt == 0.02 {
		t.Error("override leaked into the preset table")
	}
}

func TestLoadScenarioUnknownPreset(t *testing.T) {
	_, err := loadScenario(scenarioCmd(t, nil), []string{"nope"})
	if err == nil || !strings.Contains(err.Error(), "unknown preset") {
		t.Errorf("expected unknown preset error, got %v", err)
	}
}

func TestLoadScenarioInvalidFlag(t *testing.T) {
	_, err := loadScenario(scenarioCmd(t, map[string]string{"dt": "-1"}), nil)
	if err == nil {
		t.Error("expected validation error for negative dt")
	}
}

func TestPeerRegistryRestoresRun(t *testing.T) {
	cfg := config.GetPreset("hanging")
	cfg.Duration = 0.5
	res, err := newRunner(cfg).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	reg, err := peerRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if err := reg.Restore(res.Links); err != nil {
		t.Fatalf("restore: %v", err)
	}
	src, _ := reg.Get(cfg.Link.Source)
	if !src.IsLinked() || src.OtherPeer().ID != cfg.Link.Target {
		t.Errorf("expected %s linked to %s", cfg.Link.Source, cfg.Link.Target)
	}
}

func TestPeerRegistryRejectsHalfLink(t *testing.T) {
	cfg := config.GetPreset("hanging")
	reg, err := peerRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	snaps := []link.Snapshot{{Peer: cfg.Link.Source, State: link.Linked, LinkedPeer: cfg.Link.Target}}
	if err := reg.Restore(snaps); err == nil {
		t.Error("expected half-formed link to be rejected")
	}
}

func TestRunPresetsStoresEveryPreset(t *testing.T) {
	dataDir = t.TempDir()
	var out bytes.Buffer
	if err := runPresets(context.Background(), &out); err != nil {
		t.Fatalf("run all: %v", err)
	}
	runs, err := storage.New(dataDir).List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != len(config.ListPresets()) {
		t.Errorf("expected %d runs, got %d", len(config.ListPresets()), len(runs))
	}
	if !strings.Contains(out.String(), "scenarios in") {
		t.Errorf("missing summary line:\n%s", out.String())
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, "hanging_1", 0, &sim.Result{
		StepsTaken: 10,
		Events:     []sim.Event{{Time: 1.5, Kind: sim.EventUnlink, Detail: "physics", Force: 4200}},
		Metrics:    map[string]float64{"max_stretch": 0.2, "headroom": 0.5},
	})
	s := out.String()
	for _, want := range []string{"run id: hanging_1", "unlink", "(4200 N)", "headroom", "max_stretch"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Index(s, "headroom") > strings.Index(s, "max_stretch") {
		t.Error("metrics should be sorted by name")
	}
}

func TestDrawSceneWritesSVG(t *testing.T) {
	cmd := scenarioCmd(t, nil)
	cmd.SetOut(&bytes.Buffer{})
	drawOut = t.TempDir() + "/scene.svg"
	drawAt = 0.5

	if err := drawScene(cmd, []string{"hanging"}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	data, err := os.ReadFile(drawOut)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "<circle") {
		t.Error("expected the scene to contain dots")
	}
}

func TestIndexedListAndInfluxExport(t *testing.T) {
	dataDir = t.TempDir()
	useIndex = true
	if err := runPresets(context.Background(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run all: %v", err)
	}

	snappedOnly, scenario = true, ""
	defer func() { snappedOnly = false }()
	var out bytes.Buffer
	if err := listIndexed(&out, storage.New(dataDir)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "snap_") {
		t.Errorf("expected the snap preset among snapped runs:\n%s", out.String())
	}
	if strings.Contains(out.String(), "hanging_") {
		t.Errorf("the light hanging load should not snap:\n%s", out.String())
	}

	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil || len(runs) == 0 {
		t.Fatalf("list runs: %v", err)
	}
	var lp bytes.Buffer
	if err := st.ExportLineProtocol(&lp, runs[0].ID); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(lp.String(), "cable_stretch,") {
		t.Errorf("unexpected line protocol: %.80s", lp.String())
	}
}
