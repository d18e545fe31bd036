package metric

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Run is the set of measurements taken during one execution window.
// Only available values are recorded; iteration follows recording order.
type Run struct {
	values *orderedmap.OrderedMap[Kind, float64]
}

// NewRun creates an empty run
func NewRun() *Run {
	return &Run{values: orderedmap.New[Kind, float64]()}
}

// Record stores v if it is available and reports whether it was stored
func (r *Run) Record(v Value) bool {
	if !v.Available {
		return false
	}
	r.values.Set(v.Kind, v.Amount)
	return true
}

// Get returns the amount recorded for k
func (r *Run) Get(k Kind) (float64, bool) {
	return r.values.Get(k)
}

// Has reports whether k was recorded
func (r *Run) Has(k Kind) bool {
	_, ok := r.values.Get(k)
	return ok
}

// Kinds returns the recorded kinds in recording order
func (r *Run) Kinds() []Kind {
	kinds := make([]Kind, 0, r.values.Len())
	for pair := r.values.Oldest(); pair != nil; pair = pair.Next() {
		kinds = append(kinds, pair.Key)
	}
	return kinds
}

// Len returns the number of recorded kinds
func (r *Run) Len() int {
	return r.values.Len()
}
