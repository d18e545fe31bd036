// Package metric defines the measurements taken around an execution window
// and the collectors that take them.
package metric

import (
	"fmt"
	"strings"
)

// Kind identifies a measured quantity
type Kind int

const (
	WallTime Kind = iota
	ProcessTime
	Memory
	ObjectCount
	GcRuns
	GcTime
)

// AllKinds lists every kind in reporting order
var AllKinds = []Kind{WallTime, ProcessTime, Memory, ObjectCount, GcRuns, GcTime}

var kindNames = map[Kind]string{
	WallTime:    "wall_time",
	ProcessTime: "process_time",
	Memory:      "memory",
	ObjectCount: "objects",
	GcRuns:      "gc_runs",
	GcTime:      "gc_time",
}

var kindUnits = map[Kind]string{
	WallTime:    "ms",
	ProcessTime: "ms",
	Memory:      "bytes",
	ObjectCount: "objects",
	GcRuns:      "runs",
	GcTime:      "ms",
}

// String returns the name used in history file names and console output
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unit returns the unit the kind is reported in
func (k Kind) Unit() string {
	return kindUnits[k]
}

// Gated reports whether the kind needs the runtime's extended counters
func (k Kind) Gated() bool {
	switch k {
	case Memory, ObjectCount, GcRuns, GcTime:
		return true
	}
	return false
}

// IsTime reports whether the kind measures a duration
func (k Kind) IsTime() bool {
	return k == WallTime || k == ProcessTime || k == GcTime
}

// ParseKind converts a name such as "gc_runs" back into a Kind
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}
