// Package mode decides how often a case is run, which metrics are collected
// and how the runs are combined.
package mode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/window"
)

// Mode names a strategy
type Mode string

const (
	BenchmarkMode Mode = "benchmark"
	ProfileMode   Mode = "profile"
)

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(name)) {
	case BenchmarkMode:
		return BenchmarkMode, nil
	case ProfileMode:
		return ProfileMode, nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: benchmark, profile)", name)
}

// Hooks are called around every run, warmup included, outside the measured window
type Hooks struct {
	Setup    func(ctx context.Context) error
	Teardown func(ctx context.Context) error
}

// Strategy runs one case and produces its bundle
type Strategy interface {
	Mode() Mode
	// Kinds lists the metrics the strategy asks for; unavailable ones are dropped by the collectors
	Kinds() []metric.Kind
	// MeasuredRuns is the number of runs aggregated, excluding the warmup
	MeasuredRuns() int
	Run(ctx context.Context, name string, body window.Body, hooks Hooks) (*Bundle, error)
}

// invocation runs one window with the hooks around it. Run 0 is the warmup.
type invocation struct {
	name  string
	body  window.Body
	hooks Hooks
}

func (inv invocation) run(ctx context.Context, n int, collectors []metric.Collector, opts ...window.Option) (*metric.Run, error) {
	if inv.hooks.Setup != nil {
		if err := inv.hooks.Setup(ctx); err != nil {
			return nil, &SetupError{TestCase: inv.name, Phase: "setup", Cause: err}
		}
	}

	run, err := window.Invoke(ctx, inv.body, collectors, opts...)

	if inv.hooks.Teardown != nil {
		if tdErr := inv.hooks.Teardown(ctx); tdErr != nil && err == nil {
			return nil, &SetupError{TestCase: inv.name, Phase: "teardown", Cause: tdErr}
		}
	}

	if err != nil {
		return nil, classify(inv.name, n, err)
	}
	return run, nil
}

// warmup runs the unmeasured first invocation and returns its wall time
func (inv invocation) warmup(ctx context.Context) (time.Duration, error) {
	run, err := inv.run(ctx, 0, metric.Set(metric.WallTime))
	if err != nil {
		return 0, err
	}
	ms, _ := run.Get(metric.WallTime)
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func classify(name string, n int, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{TestCase: name, Run: n, Cause: err}
	}
	return &ExecutionError{TestCase: name, Run: n, Cause: err}
}
