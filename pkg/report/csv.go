package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/mode"
)

// HistoryHeader is the first row of every history file
var HistoryHeader = []string{"measurement", "created_at", "app", "rails", "ruby", "platform"}

// HistoryLedger is told about every history file after rows were appended to it
type HistoryLedger interface {
	RecordHistory(path string) error
}

// CsvSink appends one row per measured run and metric to <dir>/<TestCase>_<metric>.csv.
// Files are never rewritten: the header goes in when the file is created and
// every later row is a single O_APPEND write, so concurrent processes can
// share a directory.
type CsvSink struct {
	dir    string
	env    Environment
	logger *zap.Logger
	ledger HistoryLedger
	now    func() time.Time
	open   func(name string, flag int, perm os.FileMode) (*os.File, error)
}

// CsvOption configures a CsvSink
type CsvOption func(*CsvSink)

// WithLedger records each touched history file after its rows are appended
func WithLedger(l HistoryLedger) CsvOption {
	return func(s *CsvSink) {
		s.ledger = l
	}
}

// WithClock overrides the created_at source
func WithClock(now func() time.Time) CsvOption {
	return func(s *CsvSink) {
		s.now = now
	}
}

// NewCsvSink writes history files under dir
func NewCsvSink(dir string, env Environment, logger *zap.Logger, opts ...CsvOption) *CsvSink {
	s := &CsvSink{
		dir:    dir,
		env:    env,
		logger: logger,
		now:    time.Now,
		open:   os.OpenFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CsvSink) Name() string { return "csv" }

// Path returns the history file of a case and metric
func (s *CsvSink) Path(testCase string, k metric.Kind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", testCase, k))
}

// Report appends the bundle's rows. Profile bundles produce no rows.
// Failed appends are collected as *IOError and do not stop the remaining rows.
func (s *CsvSink) Report(ctx context.Context, b *mode.Bundle) error {
	if b.Mode != mode.BenchmarkMode {
		return nil
	}
	kinds := b.Kinds()
	if len(kinds) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &IOError{Path: s.dir, Cause: err}
	}

	var errs []error
	for _, k := range kinds {
		path := s.Path(b.TestCase, k)
		appended := 0
		for _, run := range b.Runs {
			v, ok := run.Get(k)
			if !ok {
				continue
			}
			if err := s.appendWithRetry(path, s.row(v)); err != nil {
				errs = append(errs, err)
				continue
			}
			appended++
		}

		if appended > 0 && s.ledger != nil {
			if err := s.ledger.RecordHistory(path); err != nil {
				s.logger.Warn("failed to record history checksum", zap.String("path", path), zap.Error(err))
			}
		}
	}

	return errors.Join(errs...)
}

func (s *CsvSink) Close() error { return nil }

func (s *CsvSink) row(v float64) []string {
	return []string{
		strconv.FormatFloat(v, 'f', -1, 64),
		s.now().Format(time.RFC3339),
		s.env.App,
		s.env.Framework,
		s.env.Runtime,
		s.env.Platform,
	}
}

func (s *CsvSink) appendWithRetry(path string, row []string) error {
	err := s.appendRow(path, row)
	if err == nil {
		return nil
	}
	s.logger.Debug("retrying history append", zap.String("path", path), zap.Error(err))
	if err = s.appendRow(path, row); err != nil {
		return &IOError{Path: path, Cause: err}
	}
	return nil
}

// appendRow creates the file with header and row together, or appends the row
// alone when the file already exists. Each path issues exactly one write. A
// file this call created is removed again when its write fails, and an empty
// existing file gets the header, so every history file starts with it.
func (s *CsvSink) appendRow(path string, row []string) error {
	f, err := s.open(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	created := err == nil
	if !created {
		if !errors.Is(err, os.ErrExist) {
			return err
		}
		if f, err = s.open(path, os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return err
		}
	}

	rows := [][]string{row}
	if created || isEmpty(f) {
		rows = [][]string{HistoryHeader, row}
	}

	data, err := encode(rows...)
	if err == nil {
		_, err = f.Write(data)
	}
	if err != nil {
		f.Close()
		if created {
			os.Remove(path)
		}
		return err
	}
	return f.Close()
}

func isEmpty(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Size() == 0
}

func encode(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
