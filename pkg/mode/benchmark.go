package mode

import (
	"context"
	"time"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/window"
)

// DefaultBenchmarkRuns is the number of measured benchmark runs
const DefaultBenchmarkRuns = 4

// Benchmark runs a warmup and then a fixed number of measured runs
type Benchmark struct {
	runs int
}

// NewBenchmark creates a benchmark strategy; runs < 1 selects the default
func NewBenchmark(runs int) *Benchmark {
	if runs < 1 {
		runs = DefaultBenchmarkRuns
	}
	return &Benchmark{runs: runs}
}

func (b *Benchmark) Mode() Mode { return BenchmarkMode }

func (b *Benchmark) MeasuredRuns() int { return b.runs }

// Kinds puts WallTime last so it is armed last and measured first, innermost
// around the body
func (b *Benchmark) Kinds() []metric.Kind {
	return []metric.Kind{metric.Memory, metric.ObjectCount, metric.GcRuns, metric.GcTime, metric.WallTime}
}

// Run performs the warmup and the measured runs. Any failure discards the
// whole bundle.
func (b *Benchmark) Run(ctx context.Context, name string, body window.Body, hooks Hooks) (*Bundle, error) {
	inv := invocation{name: name, body: body, hooks: hooks}
	bundle := &Bundle{TestCase: name, Mode: BenchmarkMode, StartedAt: time.Now()}

	warmup, err := inv.warmup(ctx)
	if err != nil {
		return nil, err
	}
	bundle.Warmup = warmup

	for i := 1; i <= b.runs; i++ {
		run, err := inv.run(ctx, i, metric.Set(b.Kinds()...))
		if err != nil {
			return nil, err
		}
		bundle.Runs = append(bundle.Runs, run)
	}
	return bundle, nil
}
