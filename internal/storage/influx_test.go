package storage

import (
	"bytes"
	"strings"
	"testing"
)

func TestExportLineProtocol(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testConfig(), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportLineProtocol(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// 2 frames + 1 event
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, l := range lines[:2] {
		if !strings.HasPrefix(l, stretchMeasurement+",") {
			t.Errorf("expected stretch point, got %q", l)
		}
		if !strings.Contains(l, "run="+runID) || !strings.Contains(l, "scenario=test") {
			t.Errorf("missing tags in %q", l)
		}
	}
	if !strings.Contains(lines[1], "tension=1000") {
		t.Errorf("expected tension field, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], eventMeasurement+",") || !strings.Contains(lines[2], "kind=link") {
		t.Errorf("expected link event, got %q", lines[2])
	}
}

func TestExportLineProtocolMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if err := st.ExportLineProtocol(&bytes.Buffer{}, "nope"); err == nil {
		t.Error("expected error for missing run")
	}
}
