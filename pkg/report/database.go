package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/checksum"
	"github.com/mslinn/perftest/pkg/database"
	"github.com/mslinn/perftest/pkg/mode"
)

// DatabaseSink mirrors every case of one harness invocation into SQLite and
// records the checksum of each history file the CSV sink appends to.
type DatabaseSink struct {
	db     *database.DB
	run    *database.Run
	logger *zap.Logger
	passed int
	failed int
}

// NewDatabaseSink creates the run record for this invocation. The caller keeps ownership of db.
func NewDatabaseSink(db *database.DB, m mode.Mode, env Environment, logger *zap.Logger) (*DatabaseSink, error) {
	run := &database.Run{
		UUID:      uuid.NewString(),
		Mode:      string(m),
		App:       env.App,
		Framework: env.Framework,
		Runtime:   env.Runtime,
		Platform:  env.Platform,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Status:    database.RunRunning,
	}
	if err := db.CreateRun(run); err != nil {
		return nil, err
	}
	logger.Debug("created run record", zap.String("run", run.UUID), zap.Int64("id", run.ID))
	return &DatabaseSink{db: db, run: run, logger: logger}, nil
}

func (s *DatabaseSink) Name() string { return "database" }

// Run returns the run record of this invocation
func (s *DatabaseSink) Run() *database.Run {
	return s.run
}

func (s *DatabaseSink) Report(ctx context.Context, b *mode.Bundle) error {
	warmupMs := float64(b.Warmup) / float64(time.Millisecond)
	cr := &database.CaseResult{
		RunID:     s.run.ID,
		TestCase:  b.TestCase,
		Status:    database.StatusPassed,
		WarmupMs:  &warmupMs,
		StartedAt: b.StartedAt,
	}
	if err := s.db.CreateCaseResult(cr); err != nil {
		return err
	}
	s.passed++

	now := time.Now()
	var ms []*database.Measurement
	for i, run := range b.Runs {
		for _, k := range b.Kinds() {
			v, ok := run.Get(k)
			if !ok {
				continue
			}
			ms = append(ms, &database.Measurement{
				RunID:     s.run.ID,
				ResultID:  cr.ID,
				TestCase:  b.TestCase,
				Metric:    k.String(),
				RunIndex:  i + 1,
				Value:     v,
				CreatedAt: now,
			})
		}
	}
	if len(ms) == 0 {
		return nil
	}
	return s.db.CreateMeasurements(ms)
}

// ReportError records a failed case; the error text is kept for perft-query
func (s *DatabaseSink) ReportError(testCase string, m mode.Mode, err error) {
	s.failed++
	status := database.StatusErrored
	var timeout *mode.TimeoutError
	if errors.As(err, &timeout) {
		status = database.StatusTimedOut
	}

	cr := &database.CaseResult{
		RunID:     s.run.ID,
		TestCase:  testCase,
		Status:    status,
		StartedAt: time.Now(),
		Error:     err.Error(),
	}
	if dbErr := s.db.CreateCaseResult(cr); dbErr != nil {
		s.logger.Warn("failed to record case error", zap.String("case", testCase), zap.Error(dbErr))
	}
}

// RecordHistory stores the size and CRC32 of a history file after an append
func (s *DatabaseSink) RecordHistory(path string) error {
	cs, err := checksum.ComputeFile(path)
	if err != nil {
		return err
	}
	return checksum.Store(s.db, s.run.ID, cs)
}

// Close marks the run completed, or failed when any case errored
func (s *DatabaseSink) Close() error {
	done := time.Now()
	s.run.CompletedAt = &done
	s.run.Status = database.RunCompleted
	if s.failed > 0 {
		s.run.Status = database.RunFailed
	}
	s.run.Notes = fmt.Sprintf("%d passed, %d failed", s.passed, s.failed)
	return s.db.UpdateRun(s.run)
}
