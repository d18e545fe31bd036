package harness

import (
	"context"
	"time"

	"github.com/mslinn/perftest/pkg/mode"
	"github.com/mslinn/perftest/pkg/suite"
)

// Runner executes one test case under a strategy, calling its setup and
// teardown hooks around every run outside the measured window.
type Runner struct {
	strategy mode.Strategy
	timeout  time.Duration
}

// NewRunner uses the benchmark strategy with the default run count when strategy is nil
func NewRunner(strategy mode.Strategy, timeout time.Duration) *Runner {
	if strategy == nil {
		strategy = mode.NewBenchmark(mode.DefaultBenchmarkRuns)
	}
	return &Runner{strategy: strategy, timeout: timeout}
}

// Mode returns the strategy's mode
func (r *Runner) Mode() mode.Mode {
	return r.strategy.Mode()
}

// RunCase produces the bundle of one case. Errors are *mode.SetupError,
// *mode.ExecutionError or *mode.TimeoutError.
func (r *Runner) RunCase(ctx context.Context, tc suite.TestCase) (*mode.Bundle, error) {
	if err := tc.Validate(); err != nil {
		return nil, &mode.SetupError{TestCase: tc.Name, Phase: "setup", Cause: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	hooks := mode.Hooks{Setup: tc.Setup, Teardown: tc.Teardown}
	return r.strategy.Run(ctx, tc.Name, tc.Body, hooks)
}
