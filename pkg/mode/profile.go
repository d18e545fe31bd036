package mode

import (
	"context"
	"fmt"
	"time"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/profile"
	"github.com/mslinn/perftest/pkg/window"
)

// Profile runs a warmup and one measured run under call-graph instrumentation
type Profile struct {
	newRecorder func() profile.Recorder
	repeat      int
}

// ProfileOption configures a Profile strategy
type ProfileOption func(*Profile)

// WithRecorder replaces the CPU recorder, mainly for tests
func WithRecorder(fn func() profile.Recorder) ProfileOption {
	return func(p *Profile) {
		p.newRecorder = fn
	}
}

// WithRepeat calls the body n times inside the single measured run
func WithRepeat(n int) ProfileOption {
	return func(p *Profile) {
		if n > 0 {
			p.repeat = n
		}
	}
}

// NewProfile creates a profile strategy backed by the Go CPU profiler
func NewProfile(opts ...ProfileOption) *Profile {
	p := &Profile{
		newRecorder: func() profile.Recorder { return profile.NewCPURecorder() },
		repeat:      1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Profile) Mode() Mode { return ProfileMode }

func (p *Profile) MeasuredRuns() int { return 1 }

// Kinds puts ProcessTime last so it sits innermost around the body
func (p *Profile) Kinds() []metric.Kind {
	return []metric.Kind{metric.Memory, metric.ObjectCount, metric.ProcessTime}
}

// Run performs the warmup, then one measured run with the recorder active,
// and attaches the call graph to the bundle
func (p *Profile) Run(ctx context.Context, name string, body window.Body, hooks Hooks) (*Bundle, error) {
	measured := repeated(body, p.repeat)
	inv := invocation{name: name, body: measured, hooks: hooks}
	bundle := &Bundle{TestCase: name, Mode: ProfileMode, StartedAt: time.Now()}

	warmup, err := inv.warmup(ctx)
	if err != nil {
		return nil, err
	}
	bundle.Warmup = warmup

	recorder := p.newRecorder()
	start := time.Now()
	run, err := inv.run(ctx, 1, metric.Set(p.Kinds()...), window.WithInstrument(recorder))
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	bundle.Runs = []*metric.Run{run}

	total := elapsed
	if ms, ok := run.Get(metric.ProcessTime); ok {
		total = time.Duration(ms * float64(time.Millisecond))
	}
	report, err := recorder.Report(name, total)
	if err != nil {
		return nil, &ExecutionError{TestCase: name, Run: 1, Cause: fmt.Errorf("failed to build profile: %w", err)}
	}
	bundle.Profile = report
	return bundle, nil
}

func repeated(body window.Body, n int) window.Body {
	if n <= 1 {
		return body
	}
	return func(ctx context.Context) error {
		for i := 0; i < n; i++ {
			if err := body(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
