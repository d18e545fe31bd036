package profile

import (
	"math"
	"time"
)

// Builder accumulates stacks into a Report
type Builder struct {
	report *Report
}

// NewBuilder starts a report whose stacks all hang below a root node
func NewBuilder(root string) *Builder {
	r := &Report{
		Root:  root,
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
	}
	r.nodes[root] = &Node{Function: root, Calls: 1}
	return &Builder{report: r}
}

// AddStack attributes weight to a stack given leaf first. The outermost
// frame is attached below the root.
func (b *Builder) AddStack(frames []Frame, weight time.Duration) {
	if len(frames) == 0 {
		b.report.nodes[b.report.Root].Self += weight
		return
	}

	r := b.report
	seenNode := make(map[string]bool, len(frames)+1)
	seenEdge := make(map[edgeKey]bool, len(frames))

	for i, f := range frames {
		n := r.node(f)
		if i == 0 {
			n.Self += weight
		}
		if !seenNode[f.Function] {
			n.Total += weight
			n.Calls++
			seenNode[f.Function] = true
		}

		caller := r.Root
		if i+1 < len(frames) {
			caller = frames[i+1].Function
		}
		key := edgeKey{caller: caller, callee: f.Function}
		e := r.edge(key)
		if i == 0 {
			e.Self += weight
		}
		if !seenEdge[key] {
			e.Total += weight
			e.Calls++
			seenEdge[key] = true
		}
	}
}

// Finish fixes the report to the measured total. Time not covered by any
// stack is attributed to the root; if the stacks exceed the total (several
// threads sampling at once) every figure is scaled down so self times sum
// to the total.
func (b *Builder) Finish(total time.Duration) *Report {
	r := b.report
	r.total = total

	sampled := r.SelfTotal()
	switch {
	case sampled <= total:
		r.nodes[r.Root].Self += total - sampled
	case sampled > 0:
		r.scale(float64(total) / float64(sampled))
		// absorb rounding so the invariant holds exactly
		r.nodes[r.Root].Self += total - r.SelfTotal()
	}

	root := r.nodes[r.Root]
	root.Total = total
	return r
}

func (r *Report) node(f Frame) *Node {
	n, ok := r.nodes[f.Function]
	if !ok {
		n = &Node{Function: f.Function, File: f.File}
		r.nodes[f.Function] = n
	}
	return n
}

func (r *Report) edge(key edgeKey) *Edge {
	e, ok := r.edges[key]
	if !ok {
		e = &Edge{Caller: key.caller, Callee: key.callee}
		r.edges[key] = e
	}
	return e
}

func (r *Report) scale(factor float64) {
	mul := func(d time.Duration) time.Duration {
		return time.Duration(math.Round(float64(d) * factor))
	}
	for _, n := range r.nodes {
		n.Self = mul(n.Self)
		n.Total = mul(n.Total)
	}
	for _, e := range r.edges {
		e.Self = mul(e.Self)
		e.Total = mul(e.Total)
	}
}
