// Package window runs one invocation of a code unit with a set of collectors
// armed strictly around it.
package window

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mslinn/perftest/pkg/metric"
)

// ErrConcurrentWindow is returned when a window is opened while another is active
var ErrConcurrentWindow = errors.New("another execution window is active")

// Body is the code unit measured by a window
type Body func(ctx context.Context) error

// Instrument is started before the collectors are armed and stopped after they
// are measured, so its own overhead stays outside the measurement.
type Instrument interface {
	Start() error
	Stop() error
}

// PanicError reports a panic raised by the measured body
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

var (
	active    atomic.Bool
	lingering atomic.Int32
)

// Lingering returns how many bodies abandoned at a deadline are still running.
// Windows opened while it is non-zero share the process with them, so their
// wall time and GC figures can include that work.
func Lingering() int {
	return int(lingering.Load())
}

type options struct {
	instrument Instrument
}

// Option configures Invoke
type Option func(*options)

// WithInstrument wraps the window in an instrument such as a CPU profiler
func WithInstrument(i Instrument) Option {
	return func(o *options) {
		o.instrument = i
	}
}

// Invoke runs body once. Every collector is armed immediately before the body
// and measured immediately after it, in reverse order, even when the body
// fails. On failure the measurements are discarded and the error returned.
//
// When ctx is done before the body returns, Invoke returns ctx.Err() wrapped
// and releases the window. The abandoned body keeps running in its goroutine
// until it observes ctx, and is counted by Lingering until it returns.
func Invoke(ctx context.Context, body Body, collectors []metric.Collector, opts ...Option) (*metric.Run, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrConcurrentWindow
	}
	defer active.Store(false)

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.instrument != nil {
		if err := o.instrument.Start(); err != nil {
			return nil, fmt.Errorf("failed to start instrument: %w", err)
		}
	}

	values, err := measure(ctx, body, collectors)

	if o.instrument != nil {
		if stopErr := o.instrument.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("failed to stop instrument: %w", stopErr)
		}
	}

	if err != nil {
		return nil, err
	}

	run := metric.NewRun()
	for _, v := range values {
		run.Record(v)
	}
	return run, nil
}

func measure(ctx context.Context, body Body, collectors []metric.Collector) (values []metric.Value, err error) {
	tokens := make([]metric.Token, len(collectors))
	values = make([]metric.Value, len(collectors))

	for i, c := range collectors {
		tokens[i] = c.Arm()
	}
	defer func() {
		for i := len(collectors) - 1; i >= 0; i-- {
			values[i] = safeMeasure(collectors[i], tokens[i])
		}
	}()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r}
			}
		}()
		done <- body(ctx)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("execution aborted: %w", ctx.Err())
		lingering.Add(1)
		go func() {
			<-done
			lingering.Add(-1)
		}()
	}
	return values, err
}

// safeMeasure keeps a failing collector from suppressing the others
func safeMeasure(c metric.Collector, t metric.Token) (v metric.Value) {
	defer func() {
		if r := recover(); r != nil {
			v = metric.Unavailable(c.Kind())
		}
	}()
	return c.Measure(t)
}
