package metric

import (
	"runtime"
	"runtime/metrics"
	"time"
)

// Token carries the state captured when a collector is armed
type Token struct {
	start time.Time
	base  float64
	armed bool
}

// Collector takes one measurement around one execution window
type Collector interface {
	Kind() Kind
	// Arm is called immediately before the measured code runs
	Arm() Token
	// Measure is called immediately after, with the token Arm returned
	Measure(Token) Value
}

// New returns the collector for a kind
func New(k Kind) Collector {
	switch k {
	case WallTime:
		return wallCollector{}
	case ProcessTime:
		return processCollector{}
	case Memory:
		return counterCollector{kind: Memory, read: sampleReader(allocBytesMetric)}
	case ObjectCount:
		return counterCollector{kind: ObjectCount, read: sampleReader(allocObjectsMetric)}
	case GcRuns:
		return counterCollector{kind: GcRuns, read: sampleReader(gcCyclesMetric)}
	case GcTime:
		return counterCollector{kind: GcTime, read: readPauseMillis}
	}
	return counterCollector{kind: k, read: func() float64 { return 0 }}
}

// Set returns collectors for the given kinds, in order
func Set(kinds ...Kind) []Collector {
	collectors := make([]Collector, 0, len(kinds))
	for _, k := range kinds {
		collectors = append(collectors, New(k))
	}
	return collectors
}

type wallCollector struct{}

func (wallCollector) Kind() Kind { return WallTime }

func (wallCollector) Arm() Token {
	return Token{start: time.Now(), armed: true}
}

func (wallCollector) Measure(t Token) Value {
	if !t.armed {
		return Unavailable(WallTime)
	}
	return Measured(WallTime, millis(time.Since(t.start)))
}

type processCollector struct{}

func (processCollector) Kind() Kind { return ProcessTime }

func (processCollector) Arm() Token {
	cpu, ok := processCPUTime()
	if !ok {
		return Token{}
	}
	return Token{base: millis(cpu), armed: true}
}

func (processCollector) Measure(t Token) Value {
	if !t.armed {
		return Unavailable(ProcessTime)
	}
	cpu, ok := processCPUTime()
	if !ok {
		return Unavailable(ProcessTime)
	}
	return Measured(ProcessTime, millis(cpu)-t.base)
}

// counterCollector reports the growth of a monotonic runtime counter.
// It is gated on the capability probe.
type counterCollector struct {
	kind Kind
	read func() float64
}

func (c counterCollector) Kind() Kind { return c.kind }

func (c counterCollector) Arm() Token {
	if !Probe().Available(c.kind) {
		return Token{}
	}
	return Token{base: c.read(), armed: true}
}

func (c counterCollector) Measure(t Token) Value {
	if !t.armed || !Probe().Available(c.kind) {
		return Unavailable(c.kind)
	}
	return Measured(c.kind, c.read()-t.base)
}

func sampleReader(name string) func() float64 {
	return func() float64 {
		sample := []metrics.Sample{{Name: name}}
		metrics.Read(sample)
		switch sample[0].Value.Kind() {
		case metrics.KindUint64:
			return float64(sample[0].Value.Uint64())
		case metrics.KindFloat64:
			return sample[0].Value.Float64()
		}
		return 0
	}
}

func readPauseMillis() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.PauseTotalNs) / float64(time.Millisecond)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
