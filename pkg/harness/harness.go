// Package harness runs test cases one at a time under a mode strategy and
// hands every result bundle to the report sinks.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/config"
	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/mode"
	"github.com/mslinn/perftest/pkg/report"
	"github.com/mslinn/perftest/pkg/suite"
	"github.com/mslinn/perftest/pkg/window"
)

// Options configures a Harness
type Options struct {
	Strategy mode.Strategy
	// Timeout bounds each case, warmup and hooks included; zero means none
	Timeout time.Duration
	// Environment is exported into the process before the first case
	Environment *config.Environment
	Logger      *zap.Logger
}

// Warner is implemented by sinks that can show non-fatal problems to the user.
// Setup failures are reported only to sinks that are also Warners.
type Warner interface {
	Warn(format string, args ...interface{})
}

// Failure is a case that produced no bundle
type Failure struct {
	TestCase string
	Err      error
}

// Summary counts case outcomes of one Run
type Summary struct {
	Passed   int
	Errored  int
	TimedOut int
	Skipped  int
	Failures []Failure
}

// Total returns the number of cases considered
func (s Summary) Total() int {
	return s.Passed + s.Errored + s.TimedOut + s.Skipped
}

// Failed reports whether any case did not pass
func (s Summary) Failed() bool {
	return s.Errored > 0 || s.TimedOut > 0 || s.Skipped > 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d passed, %d errored, %d timed out, %d skipped", s.Passed, s.Errored, s.TimedOut, s.Skipped)
}

// Harness runs cases sequentially and fans results out to its sinks
type Harness struct {
	runner *Runner
	sinks  []report.Sink
	env    *config.Environment
	logger *zap.Logger
}

// New creates a harness. A nil logger disables logging.
func New(opts Options, sinks ...report.Sink) *Harness {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		runner: NewRunner(opts.Strategy, opts.Timeout),
		sinks:  sinks,
		env:    opts.Environment,
		logger: logger,
	}
}

// Run executes every case in order. No failure of one case or sink stops the
// others; only cancellation of ctx skips the remaining cases.
func (h *Harness) Run(ctx context.Context, cases []suite.TestCase) Summary {
	var summary Summary

	if h.env != nil {
		if err := h.env.Apply(); err != nil {
			h.logger.Warn("failed to apply environment", zap.Error(err))
		}
	}

	caps := metric.Probe()
	h.logger.Debug("runtime capabilities",
		zap.Bool("allocations", caps.Allocations), zap.Bool("gc_stats", caps.GCStats))

	for i, tc := range cases {
		if ctx.Err() != nil {
			summary.Skipped += len(cases) - i
			h.logger.Warn("run cancelled", zap.Int("skipped", len(cases)-i))
			break
		}

		if n := window.Lingering(); n > 0 {
			h.logger.Warn("bodies abandoned at a deadline are still running; measurements may include their work",
				zap.String("case", tc.Name), zap.Int("bodies", n))
		}

		h.logger.Debug("running case", zap.String("case", tc.Name), zap.String("mode", string(h.runner.Mode())))
		bundle, err := h.runner.RunCase(ctx, tc)
		if err != nil {
			h.fail(&summary, tc.Name, err)
			continue
		}

		summary.Passed++
		h.fanOut(ctx, bundle)
	}

	h.logger.Info("run finished", zap.Stringer("summary", summary))
	return summary
}

func (h *Harness) fail(summary *Summary, name string, err error) {
	var timeout *mode.TimeoutError
	if errors.As(err, &timeout) {
		summary.TimedOut++
	} else {
		summary.Errored++
	}
	summary.Failures = append(summary.Failures, Failure{TestCase: name, Err: err})

	// a case that never got past setup only shows up on the console
	var setup *mode.SetupError
	consoleOnly := errors.As(err, &setup)

	h.logger.Debug("case failed", zap.String("case", name), zap.Bool("setup", consoleOnly), zap.Error(err))
	for _, s := range h.sinks {
		r, ok := s.(report.ErrorReporter)
		if !ok {
			continue
		}
		if _, console := s.(Warner); consoleOnly && !console {
			continue
		}
		r.ReportError(name, h.runner.Mode(), err)
	}
}

func (h *Harness) fanOut(ctx context.Context, b *mode.Bundle) {
	for _, s := range h.sinks {
		if err := s.Report(ctx, b); err != nil {
			h.warn(s.Name(), b.TestCase, err)
		}
	}
}

func (h *Harness) warn(sink, testCase string, err error) {
	h.logger.Warn("sink failed", zap.String("sink", sink), zap.String("case", testCase), zap.Error(err))
	for _, s := range h.sinks {
		if w, ok := s.(Warner); ok {
			w.Warn("%s: %v", sink, err)
		}
	}
}

// Close closes every sink and returns their combined errors
func (h *Harness) Close() error {
	var errs []error
	for _, s := range h.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
