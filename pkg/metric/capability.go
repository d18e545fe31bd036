package metric

import (
	"os"
	"runtime/metrics"
	"sync"
)

// Names of the runtime/metrics samples the gated collectors read
const (
	allocBytesMetric   = "/gc/heap/allocs:bytes"
	allocObjectsMetric = "/gc/heap/allocs:objects"
	gcCyclesMetric     = "/gc/cycles/total:gc-cycles"
)

// DisableEnv forces the probe to report no extended counters when set to "1" or "true"
const DisableEnv = "PERFTEST_DISABLE_GC_STATS"

// Capabilities records which extended counters the running process exposes
type Capabilities struct {
	Allocations bool // Memory and ObjectCount
	GCStats     bool // GcRuns and GcTime
}

// Available reports whether a kind can be measured with these capabilities
func (c Capabilities) Available(k Kind) bool {
	switch k {
	case Memory, ObjectCount:
		return c.Allocations
	case GcRuns, GcTime:
		return c.GCStats
	default:
		return true
	}
}

// Complete reports whether every kind is measurable
func (c Capabilities) Complete() bool {
	return c.Allocations && c.GCStats
}

var (
	probeOnce sync.Once
	probeMu   sync.RWMutex
	probed    Capabilities
)

// Probe returns the process-wide capabilities, detecting them on first use
func Probe() Capabilities {
	probeOnce.Do(func() {
		c := detect()
		probeMu.Lock()
		probed = c
		probeMu.Unlock()
	})
	probeMu.RLock()
	defer probeMu.RUnlock()
	return probed
}

// SetCapabilities replaces the probed capabilities and returns a function that restores them.
// Intended for tests and for embedding code that knows better than the probe.
func SetCapabilities(c Capabilities) (restore func()) {
	prev := Probe()
	probeMu.Lock()
	probed = c
	probeMu.Unlock()
	return func() {
		probeMu.Lock()
		probed = prev
		probeMu.Unlock()
	}
}

func detect() Capabilities {
	if v := os.Getenv(DisableEnv); v == "1" || v == "true" {
		return Capabilities{}
	}

	supported := make(map[string]bool)
	for _, d := range metrics.All() {
		supported[d.Name] = true
	}

	return Capabilities{
		Allocations: supported[allocBytesMetric] && supported[allocObjectsMetric],
		GCStats:     supported[gcCyclesMetric],
	}
}
