package timing

import (
	"fmt"
	"time"
)

// Elapsed is the wall time of calling a function a number of times
type Elapsed struct {
	Label    string
	Times    int
	Duration time.Duration
	Error    error
}

// Measure calls fn times times (at least once) and returns the total wall
// time. It stops at the first error.
func Measure(label string, times int, fn func() error) *Elapsed {
	if times < 1 {
		times = 1
	}

	e := &Elapsed{Label: label}
	start := time.Now()
	for i := 0; i < times; i++ {
		e.Times++
		if err := fn(); err != nil {
			e.Error = err
			break
		}
	}
	e.Duration = time.Since(start)
	return e
}

// PerCall returns the mean duration of one call
func (e *Elapsed) PerCall() time.Duration {
	if e.Times == 0 {
		return 0
	}
	return e.Duration / time.Duration(e.Times)
}

// String formats the elapsed time the way the benchmarker prints it
func (e *Elapsed) String() string {
	if e.Error != nil {
		return fmt.Sprintf("%s: failed after %d call(s): %v", e.Label, e.Times, e.Error)
	}
	return fmt.Sprintf("%s: %.3f ms (%d x %.3f ms)",
		e.Label,
		float64(e.Duration)/float64(time.Millisecond),
		e.Times,
		float64(e.PerCall())/float64(time.Millisecond),
	)
}
