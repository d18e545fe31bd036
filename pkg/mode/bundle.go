package mode

import (
	"time"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/profile"
)

// Bundle holds everything measured for one test case in one mode.
// It is created per case and dropped once every sink has seen it.
type Bundle struct {
	TestCase  string
	Mode      Mode
	StartedAt time.Time
	Warmup    time.Duration
	Runs      []*metric.Run
	Profile   *profile.Report // profile mode only
}

// Kinds returns the kinds present in the bundle, in reporting order
func (b *Bundle) Kinds() []metric.Kind {
	var kinds []metric.Kind
	for _, k := range metric.AllKinds {
		for _, run := range b.Runs {
			if run.Has(k) {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return kinds
}

// Values returns the amounts of k across the measured runs
func (b *Bundle) Values(k metric.Kind) []float64 {
	var values []float64
	for _, run := range b.Runs {
		if v, ok := run.Get(k); ok {
			values = append(values, v)
		}
	}
	return values
}

// Mean returns the mean of k across the measured runs
func (b *Bundle) Mean(k metric.Kind) (float64, bool) {
	values := b.Values(k)
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
