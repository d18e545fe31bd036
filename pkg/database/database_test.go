package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "perftest.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createRun(t *testing.T, db *DB, uuid, mode string) *Run {
	t.Helper()
	run := &Run{
		UUID:      uuid,
		Mode:      mode,
		App:       "1.0.0",
		Runtime:   "go1.24.2",
		Platform:  "linux-amd64",
		PID:       42,
		StartedAt: time.Now(),
		Status:    RunRunning,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	return run
}

func TestOpen_ReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perftest.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	db.Close()
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	run := createRun(t, db, "run-1", "benchmark")

	if run.ID == 0 {
		t.Fatal("CreateRun did not set ID")
	}

	done := time.Now()
	run.CompletedAt = &done
	run.Status = RunCompleted
	run.Notes = "2 passed"
	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunCompleted {
		t.Errorf("Status = %q, want %q", got.Status, RunCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if got.App != "1.0.0" || got.Framework != "" {
		t.Errorf("App/Framework = %q/%q", got.App, got.Framework)
	}
	if got.Notes != "2 passed" {
		t.Errorf("Notes = %q", got.Notes)
	}
}

func TestListRuns_FilterByMode(t *testing.T) {
	db := openTestDB(t)
	createRun(t, db, "run-1", "benchmark")
	createRun(t, db, "run-2", "profile")
	createRun(t, db, "run-3", "benchmark")

	all, err := db.ListRuns("")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}

	bench, err := db.ListRuns("benchmark")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(bench) != 2 {
		t.Errorf("len(bench) = %d, want 2", len(bench))
	}
}

func TestCreateRun_DuplicateUUID(t *testing.T) {
	db := openTestDB(t)
	createRun(t, db, "same", "benchmark")

	err := db.CreateRun(&Run{UUID: "same", Mode: "benchmark", Runtime: "go", Platform: "x", StartedAt: time.Now(), Status: RunRunning})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestMeasurementsAndStats(t *testing.T) {
	db := openTestDB(t)
	run := createRun(t, db, "run-1", "benchmark")

	warmup := 6.5
	cr := &CaseResult{RunID: run.ID, TestCase: "Homepage", Status: StatusPassed, WarmupMs: &warmup, StartedAt: time.Now()}
	if err := db.CreateCaseResult(cr); err != nil {
		t.Fatalf("CreateCaseResult failed: %v", err)
	}

	var ms []*Measurement
	for i, v := range []float64{6, 7, 8, 9} {
		ms = append(ms, &Measurement{
			RunID: run.ID, ResultID: cr.ID, TestCase: "Homepage",
			Metric: "wall_time", RunIndex: i + 1, Value: v, CreatedAt: time.Now(),
		})
	}
	if err := db.CreateMeasurements(ms); err != nil {
		t.Fatalf("CreateMeasurements failed: %v", err)
	}

	got, err := db.ListMeasurements("Homepage", "wall_time", 0)
	if err != nil {
		t.Fatalf("ListMeasurements failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].RunIndex != 1 || got[3].Value != 9 {
		t.Errorf("unexpected order: %+v", got)
	}

	limited, err := db.ListMeasurements("Homepage", "wall_time", 2)
	if err != nil {
		t.Fatalf("ListMeasurements failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}

	stats, err := db.Stats("Homepage")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("len(stats) = %d, want 1", len(stats))
	}
	s := stats[0]
	if s.Count != 4 || s.Mean != 7.5 || s.Min != 6 || s.Max != 9 {
		t.Errorf("stats = %+v", s)
	}

	results, err := db.ListCaseResults(run.ID)
	if err != nil {
		t.Fatalf("ListCaseResults failed: %v", err)
	}
	if len(results) != 1 || results[0].WarmupMs == nil || *results[0].WarmupMs != 6.5 {
		t.Errorf("results = %+v", results)
	}
}

func TestCaseResult_ErrorWithoutWarmup(t *testing.T) {
	db := openTestDB(t)
	run := createRun(t, db, "run-1", "benchmark")

	cr := &CaseResult{RunID: run.ID, TestCase: "Broken", Status: StatusErrored, StartedAt: time.Now(), Error: "boom"}
	if err := db.CreateCaseResult(cr); err != nil {
		t.Fatalf("CreateCaseResult failed: %v", err)
	}

	results, err := db.ListCaseResults(run.ID)
	if err != nil {
		t.Fatalf("ListCaseResults failed: %v", err)
	}
	if results[0].WarmupMs != nil {
		t.Error("WarmupMs should be nil")
	}
	if results[0].Error != "boom" {
		t.Errorf("Error = %q", results[0].Error)
	}
}

func TestLatestHistoryFiles(t *testing.T) {
	db := openTestDB(t)
	run := createRun(t, db, "run-1", "benchmark")

	records := []*HistoryFile{
		{RunID: run.ID, FilePath: "a.csv", SizeBytes: 10, CRC32: "00000001", RecordedAt: time.Now()},
		{RunID: run.ID, FilePath: "b.csv", SizeBytes: 20, CRC32: "00000002", RecordedAt: time.Now()},
		{RunID: run.ID, FilePath: "a.csv", SizeBytes: 30, CRC32: "00000003", RecordedAt: time.Now()},
	}
	for _, hf := range records {
		if err := db.CreateHistoryFile(hf); err != nil {
			t.Fatalf("CreateHistoryFile failed: %v", err)
		}
	}

	latest, err := db.LatestHistoryFiles()
	if err != nil {
		t.Fatalf("LatestHistoryFiles failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("len = %d, want 2", len(latest))
	}
	if latest[0].FilePath != "a.csv" || latest[0].SizeBytes != 30 {
		t.Errorf("latest[0] = %+v", latest[0])
	}
	if latest[1].FilePath != "b.csv" || latest[1].CRC32 != "00000002" {
		t.Errorf("latest[1] = %+v", latest[1])
	}
}
