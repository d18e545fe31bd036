package profile

import (
	"fmt"
	"io"
	"strings"
)

const graphRule = "--------------------------------------------------------------------------------"

// RenderGraph writes one block per function: callers above, the function
// itself, callees below
func RenderGraph(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Profile: %s\n", r.Root)
	fmt.Fprintf(w, "Total: %.3f ms\n\n", ms(r.Total()))
	fmt.Fprintln(w, graphRule)
	fmt.Fprintf(w, "%8s %8s %10s %10s %12s  %s\n", "%total", "%self", "total", "self", "calls", "name")
	fmt.Fprintln(w, graphRule)

	for _, n := range r.Nodes() {
		for _, e := range r.Callers(n.Function) {
			fmt.Fprintf(w, "%8s %8s %10.3f %10.3f %12s      %s\n", "", "",
				ms(e.Total), ms(e.Self), fmt.Sprintf("%d/%d", e.Calls, n.Calls), e.Caller)
		}
		fmt.Fprintf(w, "%7.2f%% %7.2f%% %10.3f %10.3f %12d  %s\n",
			percent(n.Total, r.Total()), percent(n.Self, r.Total()),
			ms(n.Total), ms(n.Self), n.Calls, n.Function)
		for _, e := range r.Callees(n.Function) {
			calls := e.Calls
			if callee, ok := r.Node(e.Callee); ok {
				calls = callee.Calls
			}
			fmt.Fprintf(w, "%8s %8s %10.3f %10.3f %12s      %s\n", "", "",
				ms(e.Total), ms(e.Self), fmt.Sprintf("%d/%d", e.Calls, calls), e.Callee)
		}
		fmt.Fprintln(w, strings.Repeat("-", len(graphRule)))
	}
	return nil
}
