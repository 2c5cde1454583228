package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/multifocus/pkg/daemon/store"
	"github.com/jamesainslie/multifocus/pkg/multifocus/engine"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPlansRoundTrip(t *testing.T) {
	s := openStore(t)

	if _, err := s.LoadPlans(); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("LoadPlans on empty store: got %v, want ErrNotFound", err)
	}

	rec := store.PlanRecord{Text: "0;200;400;", Positions: []int{0, 200, 400}, NumberOfPlans: 3}
	if err := s.SavePlans(rec); err != nil {
		t.Fatalf("SavePlans failed: %v", err)
	}

	got, err := s.LoadPlans()
	if err != nil {
		t.Fatalf("LoadPlans failed: %v", err)
	}
	if got.Text != rec.Text || got.NumberOfPlans != 3 {
		t.Errorf("LoadPlans = %+v, want %+v", got, rec)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt was not stamped")
	}
}

func TestPlansSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SavePlans(store.PlanRecord{Text: "310;", NumberOfPlans: 1}); err != nil {
		t.Fatalf("SavePlans failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = store.Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.LoadPlans()
	if err != nil {
		t.Fatalf("LoadPlans failed: %v", err)
	}
	if got.Text != "310;" {
		t.Errorf("Text = %q, want %q", got.Text, "310;")
	}
}

func scan(at time.Time, plans ...int) *engine.ScanReport {
	return &engine.ScanReport{ID: uuid.NewString(), Mode: engine.ModeAuto, FinishedAt: at, Plans: plans}
}

func TestScansNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 5 {
		r := scan(base.Add(time.Duration(i)*time.Minute), i*100)
		ids = append(ids, r.ID)
		if err := s.AddScan(r); err != nil {
			t.Fatalf("AddScan failed: %v", err)
		}
	}

	got, err := s.Scans(3)
	if err != nil {
		t.Fatalf("Scans failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Scans(3) returned %d reports", len(got))
	}
	for i, want := range []string{ids[4], ids[3], ids[2]} {
		if got[i].ID != want {
			t.Errorf("Scans()[%d].ID = %s, want %s", i, got[i].ID, want)
		}
	}

	one, err := s.Scan(ids[1])
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if one.Plans[0] != 100 {
		t.Errorf("Scan plans = %v, want [100]", one.Plans)
	}

	if _, err := s.Scan("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Scan(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAddScanRequiresID(t *testing.T) {
	s := openStore(t)
	if err := s.AddScan(&engine.ScanReport{}); err == nil {
		t.Error("AddScan without id succeeded")
	}
}

func TestPruneScans(t *testing.T) {
	s := openStore(t)
	base := time.Now()
	for i := range 6 {
		if err := s.AddScan(scan(base.Add(time.Duration(i) * time.Second))); err != nil {
			t.Fatalf("AddScan failed: %v", err)
		}
	}

	n, err := s.PruneScans(2)
	if err != nil {
		t.Fatalf("PruneScans failed: %v", err)
	}
	if n != 4 {
		t.Errorf("PruneScans removed %d, want 4", n)
	}

	left, err := s.Scans(0)
	if err != nil {
		t.Fatalf("Scans failed: %v", err)
	}
	if len(left) != 2 {
		t.Errorf("%d scans left, want 2", len(left))
	}
}

func TestCalibrations(t *testing.T) {
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory failed: %v", err)
	}
	defer s.Close()

	now := time.Now()
	for i, lat := range []int{3, 4} {
		r := engine.CalibrationResult{Latency: lat, Finished: now.Add(time.Duration(i) * time.Second)}
		if err := s.AddCalibration(r); err != nil {
			t.Fatalf("AddCalibration failed: %v", err)
		}
	}

	got, err := s.Calibrations(0)
	if err != nil {
		t.Fatalf("Calibrations failed: %v", err)
	}
	if len(got) != 2 || got[0].Latency != 4 {
		t.Errorf("Calibrations = %+v, want newest latency 4 first", got)
	}
}

func TestSchema(t *testing.T) {
	s := openStore(t)

	schema := s.GetSchema()
	if schema == nil || schema.Version != store.CurrentSchemaVersion {
		t.Fatalf("GetSchema = %+v, want version %d", schema, store.CurrentSchemaVersion)
	}
}

func TestSchemaTooNew(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.SetSchema(&store.Schema{Version: store.CurrentSchemaVersion + 1}); err != nil {
		t.Fatalf("SetSchema failed: %v", err)
	}
	_ = s.Close()

	if _, err := store.Open(dir); !errors.Is(err, store.ErrSchemaTooNew) {
		t.Errorf("Open error = %v, want ErrSchemaTooNew", err)
	}
}
