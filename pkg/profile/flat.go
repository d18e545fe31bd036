package profile

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// RenderFlat writes one row per function sorted by descending self time
func RenderFlat(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Profile: %s\n", r.Root)
	fmt.Fprintf(w, "Total: %.3f ms\n\n", ms(r.Total()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	io.WriteString(tw, "%self\tself (ms)\ttotal (ms)\tcalls\t\tname\t\n")
	for _, n := range r.Nodes() {
		fmt.Fprintf(tw, "%.2f\t%.3f\t%.3f\t%d\t\t%s\t\n",
			percent(n.Self, r.Total()),
			ms(n.Self),
			ms(n.Total),
			n.Calls,
			n.Function,
		)
	}
	return tw.Flush()
}
