package checksum

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mslinn/perftest/pkg/database"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
}

func record(t *testing.T, path string) *database.HistoryFile {
	t.Helper()
	cs, err := ComputeFile(path)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}
	return &database.HistoryFile{FilePath: path, SizeBytes: cs.SizeBytes, CRC32: cs.Hex(), RecordedAt: time.Now()}
}

func TestComputeFile(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.txt")
	content := "hello world"
	writeFile(t, testFile, content)

	cs, err := ComputeFile(testFile)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}

	if cs.Path != testFile {
		t.Errorf("Path = %v, want %v", cs.Path, testFile)
	}
	// CRC32 (IEEE) of "hello world"
	if cs.CRC32 != 0x0d4a1185 {
		t.Errorf("CRC32 = %08x, want 0d4a1185", cs.CRC32)
	}
	if cs.Hex() != "0d4a1185" {
		t.Errorf("Hex = %s", cs.Hex())
	}
	if cs.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", cs.SizeBytes, len(content))
	}
}

func TestComputePrefix_MatchesWholeFileBeforeAppend(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "h.csv")
	writeFile(t, testFile, "measurement,created_at\n")

	before, err := ComputeFile(testFile)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}

	appendFile(t, testFile, "6.1,2026-01-01T00:00:00Z\n")

	prefix, err := ComputePrefix(testFile, before.SizeBytes)
	if err != nil {
		t.Fatalf("ComputePrefix failed: %v", err)
	}
	if prefix != before.CRC32 {
		t.Errorf("prefix = %08x, want %08x", prefix, before.CRC32)
	}

	if _, err := ComputePrefix(testFile, 1<<20); err == nil {
		t.Error("expected error for prefix longer than file")
	}
}

func TestComputeDirectory_OnlyHistoryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_wall_time.csv"), "b")
	writeFile(t, filepath.Join(dir, "a_memory.csv"), "a")
	writeFile(t, filepath.Join(dir, "a_flat.txt"), "ignored")

	checksums, err := ComputeDirectory(dir)
	if err != nil {
		t.Fatalf("ComputeDirectory failed: %v", err)
	}
	if len(checksums) != 2 {
		t.Fatalf("len = %d, want 2", len(checksums))
	}
	if filepath.Base(checksums[0].Path) != "a_memory.csv" {
		t.Errorf("not sorted: %s", checksums[0].Path)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, path string)
		want   string
	}{
		{"unchanged", func(t *testing.T, path string) {}, StatusOK},
		{"appended", func(t *testing.T, path string) { appendFile(t, path, "7.0,x\n") }, StatusOK},
		{"rewritten", func(t *testing.T, path string) { writeFile(t, path, "header\n9.9,x\n") }, StatusModified},
		{"truncated", func(t *testing.T, path string) { writeFile(t, path, "head") }, StatusTruncated},
		{"deleted", func(t *testing.T, path string) { os.Remove(path) }, StatusMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "h.csv")
			writeFile(t, path, "header\n6.1,x\n")
			hf := record(t, path)

			tt.mutate(t, path)

			v := Verify(hf)
			if v.Status != tt.want {
				t.Errorf("Status = %s (%s), want %s", v.Status, v.Detail, tt.want)
			}
			if v.OK() != (tt.want == StatusOK) {
				t.Errorf("OK() = %v", v.OK())
			}
		})
	}
}

func TestStoreAndVerifyAll(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "perftest.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	run := &database.Run{UUID: "r", Mode: "benchmark", Runtime: "go", Platform: "p", StartedAt: time.Now(), Status: database.RunRunning}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	path := filepath.Join(dir, "Homepage_wall_time.csv")
	writeFile(t, path, "header\n6.1,x\n")
	cs, err := ComputeFile(path)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}
	if err := Store(db, run.ID, cs); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	results, err := VerifyAll(db)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if len(results) != 1 || !results[0].OK() {
		t.Fatalf("results = %+v", results)
	}

	writeFile(t, path, "HEADER\n6.1,x\n")
	results, err = VerifyAll(db)
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}
	if results[0].Status != StatusModified {
		t.Errorf("Status = %s, want modified", results[0].Status)
	}
}

func TestUntracked(t *testing.T) {
	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "perftest.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	run := &database.Run{UUID: "r", Mode: "benchmark", Runtime: "go", Platform: "p", StartedAt: time.Now(), Status: database.RunRunning}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	tracked := filepath.Join(dir, "Homepage_wall_time.csv")
	writeFile(t, tracked, "header\n6.1,x\n")
	cs, err := ComputeFile(tracked)
	if err != nil {
		t.Fatalf("ComputeFile failed: %v", err)
	}
	if err := Store(db, run.ID, cs); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	writeFile(t, filepath.Join(dir, "Login_wall_time.csv"), "header\n3.2,x\n")

	untracked, err := Untracked(db, dir)
	if err != nil {
		t.Fatalf("Untracked failed: %v", err)
	}
	if len(untracked) != 1 || filepath.Base(untracked[0].Path) != "Login_wall_time.csv" {
		t.Fatalf("untracked = %+v, want only Login_wall_time.csv", untracked)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %s, want %s", tt.bytes, got, tt.want)
		}
	}
}
