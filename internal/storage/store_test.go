package storage

import (
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	report := map[string]string{"message": "ok"}
	times := []float64{0, 0.1, 0.2}
	resp := []float64{0, 0.5, 0.8}
	summary := map[string]float64{"phase_margin_deg": 51.8}

	runID, err := st.Save("analyze", []float64{1}, []float64{1, 1, 0}, summary, report, times, resp)
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Task != "analyze" {
		t.Errorf("task: got %s, want analyze", meta.Task)
	}
	if len(meta.Denominator) != 3 {
		t.Errorf("denominator: got %v", meta.Denominator)
	}
	if meta.Summary["phase_margin_deg"] != 51.8 {
		t.Errorf("summary: got %v", meta.Summary)
	}

	gotT, gotY, err := st.LoadResponse(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotT) != 3 || len(gotY) != 3 {
		t.Fatalf("response: got %d/%d samples", len(gotT), len(gotY))
	}
	if gotY[2] != 0.8 {
		t.Errorf("response sample: got %g, want 0.8", gotY[2])
	}

	raw, err := st.LoadReport(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) == 0 {
		t.Error("empty report")
	}
}

func TestListEmpty(t *testing.T) {
	st := New(t.TempDir() + "/missing")
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestListFindsRuns(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save("lead", []float64{1}, []float64{1, 1, 0}, nil, map[string]int{}, nil, nil); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Task != "lead" {
		t.Errorf("task: got %s", runs[0].Task)
	}
}
