// Package report renders result bundles: console summaries, append-only CSV
// history, profile reports, a SQLite mirror, a Prometheus textfile and an
// object-store archive.
package report

import (
	"context"
	"fmt"

	"github.com/mslinn/perftest/pkg/mode"
)

// Sink consumes one bundle per completed test case
type Sink interface {
	Name() string
	Report(ctx context.Context, b *mode.Bundle) error
	Close() error
}

// ErrorReporter is implemented by sinks that also want failed cases
type ErrorReporter interface {
	ReportError(testCase string, m mode.Mode, err error)
}

// IOError reports a history write that failed even after its retry
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to append to %s: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
