// Package checksum verifies that history files only ever grow: the CRC32 of
// a file is recorded after every append, and a later check confirms the
// recorded bytes are still an unchanged prefix of the file.
package checksum

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mslinn/perftest/pkg/database"
)

// FileChecksum represents a file's checksum and metadata
type FileChecksum struct {
	Path      string
	CRC32     uint32
	SizeBytes int64
}

// Hex formats the checksum the way it is stored
func (cs *FileChecksum) Hex() string {
	return fmt.Sprintf("%08x", cs.CRC32)
}

// ComputeFile computes the CRC32 checksum for a single file
func ComputeFile(path string) (*FileChecksum, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hash := crc32.NewIEEE()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to compute checksum: %w", err)
	}

	return &FileChecksum{
		Path:      path,
		CRC32:     hash.Sum32(),
		SizeBytes: info.Size(),
	}, nil
}

// ComputePrefix computes the CRC32 of the first size bytes of a file
func ComputePrefix(path string, size int64) (uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := crc32.NewIEEE()
	n, err := io.Copy(hash, io.LimitReader(file, size))
	if err != nil {
		return 0, fmt.Errorf("failed to compute checksum: %w", err)
	}
	if n < size {
		return 0, fmt.Errorf("file is %d bytes, expected at least %d", n, size)
	}
	return hash.Sum32(), nil
}

// ComputeDirectory computes checksums for the history files (*.csv) in dir
func ComputeDirectory(dir string) ([]*FileChecksum, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	var checksums []*FileChecksum
	for _, path := range matches {
		cs, err := ComputeFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to compute checksum for %s: %w", path, err)
		}
		checksums = append(checksums, cs)
	}

	sort.Slice(checksums, func(i, j int) bool {
		return checksums[i].Path < checksums[j].Path
	})

	return checksums, nil
}

// Store records a checksum in the database for the given run
func Store(db *database.DB, runID int64, cs *FileChecksum) error {
	hf := &database.HistoryFile{
		RunID:      runID,
		FilePath:   cs.Path,
		SizeBytes:  cs.SizeBytes,
		CRC32:      cs.Hex(),
		RecordedAt: time.Now(),
	}
	if err := db.CreateHistoryFile(hf); err != nil {
		return fmt.Errorf("failed to store checksum for %s: %w", cs.Path, err)
	}
	return nil
}

// Verification statuses
const (
	StatusOK        = "ok"
	StatusMissing   = "missing"
	StatusTruncated = "truncated"
	StatusModified  = "modified"
)

// Verification is the result of checking one history file against its last record
type Verification struct {
	FilePath     string
	RecordedSize int64
	CurrentSize  int64
	Status       string
	Detail       string
}

// OK reports whether the file is intact
func (v *Verification) OK() bool {
	return v.Status == StatusOK
}

// Verify checks that the recorded bytes are an unchanged prefix of the file.
// Growth beyond the recorded size is allowed; history files are append-only.
func Verify(hf *database.HistoryFile) *Verification {
	v := &Verification{FilePath: hf.FilePath, RecordedSize: hf.SizeBytes}

	info, err := os.Stat(hf.FilePath)
	if err != nil {
		v.Status = StatusMissing
		v.Detail = err.Error()
		return v
	}
	v.CurrentSize = info.Size()

	if v.CurrentSize < hf.SizeBytes {
		v.Status = StatusTruncated
		v.Detail = fmt.Sprintf("shrank from %s to %s", FormatSize(hf.SizeBytes), FormatSize(v.CurrentSize))
		return v
	}

	want, err := strconv.ParseUint(hf.CRC32, 16, 32)
	if err != nil {
		v.Status = StatusModified
		v.Detail = fmt.Sprintf("invalid recorded checksum %q", hf.CRC32)
		return v
	}

	got, err := ComputePrefix(hf.FilePath, hf.SizeBytes)
	if err != nil {
		v.Status = StatusModified
		v.Detail = err.Error()
		return v
	}
	if got != uint32(want) {
		v.Status = StatusModified
		v.Detail = fmt.Sprintf("checksum %08x, recorded %s", got, hf.CRC32)
		return v
	}

	v.Status = StatusOK
	return v
}

// VerifyAll checks every history file known to the database
func VerifyAll(db *database.DB) ([]*Verification, error) {
	files, err := db.LatestHistoryFiles()
	if err != nil {
		return nil, err
	}

	results := make([]*Verification, 0, len(files))
	for _, hf := range files {
		results = append(results, Verify(hf))
	}
	return results, nil
}

// Untracked lists the history files in dir that have no recorded checksum,
// such as files written while the database mirror was disabled
func Untracked(db *database.DB, dir string) ([]*FileChecksum, error) {
	present, err := ComputeDirectory(dir)
	if err != nil {
		return nil, err
	}

	files, err := db.LatestHistoryFiles()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(files))
	for _, hf := range files {
		known[absPath(hf.FilePath)] = true
	}

	var untracked []*FileChecksum
	for _, cs := range present {
		if !known[absPath(cs.Path)] {
			untracked = append(untracked, cs)
		}
	}
	return untracked, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// FormatSize formats bytes in human-readable format
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return humanize.IBytes(uint64(bytes))
}
