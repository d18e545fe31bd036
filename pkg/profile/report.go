// Package profile builds call-graph reports for a single measured run and
// renders them as flat, graph, HTML graph and calltree reports.
package profile

import (
	"sort"
	"time"
)

// Frame is one function on a sampled stack
type Frame struct {
	Function string
	File     string
	Line     int64
}

// Node is one function in the call graph. For sampled profiles Calls counts
// the samples in which the function was on the stack.
type Node struct {
	Function string
	File     string
	Self     time.Duration
	Total    time.Duration
	Calls    int64
}

// Edge attributes time to a callee when reached from a particular caller
type Edge struct {
	Caller string
	Callee string
	Self   time.Duration // callee self time under this caller
	Total  time.Duration // callee inclusive time under this caller
	Calls  int64
}

type edgeKey struct {
	caller, callee string
}

// Report is the call graph of one measured run. It is owned by the result
// that produced it and is not modified after Finish.
type Report struct {
	Root  string
	total time.Duration
	nodes map[string]*Node
	edges map[edgeKey]*Edge
}

// Total returns the measured time of the run the report describes
func (r *Report) Total() time.Duration {
	return r.total
}

// Node returns the node for a function
func (r *Report) Node(function string) (*Node, bool) {
	n, ok := r.nodes[function]
	return n, ok
}

// Nodes returns all nodes sorted by descending self time, then name
func (r *Report) Nodes() []*Node {
	nodes := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Self != nodes[j].Self {
			return nodes[i].Self > nodes[j].Self
		}
		return nodes[i].Function < nodes[j].Function
	})
	return nodes
}

// Callers returns the edges leading into function, heaviest first
func (r *Report) Callers(function string) []*Edge {
	return r.filterEdges(func(e *Edge) bool { return e.Callee == function })
}

// Callees returns the edges leaving function, heaviest first
func (r *Report) Callees(function string) []*Edge {
	return r.filterEdges(func(e *Edge) bool { return e.Caller == function })
}

// SelfTotal sums self time over every node
func (r *Report) SelfTotal() time.Duration {
	var sum time.Duration
	for _, n := range r.nodes {
		sum += n.Self
	}
	return sum
}

func (r *Report) filterEdges(keep func(*Edge) bool) []*Edge {
	var edges []*Edge
	for _, e := range r.edges {
		if keep(e) {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Total != edges[j].Total {
			return edges[i].Total > edges[j].Total
		}
		if edges[i].Caller != edges[j].Caller {
			return edges[i].Caller < edges[j].Caller
		}
		return edges[i].Callee < edges[j].Callee
	})
	return edges
}
