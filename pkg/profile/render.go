package profile

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format selects a report renderer
type Format string

const (
	Flat      Format = "flat"
	Graph     Format = "graph"
	GraphHTML Format = "graph_html"
	Tree      Format = "tree"
)

// Formats lists every supported format
var Formats = []Format{Flat, Graph, GraphHTML, Tree}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown profile format %q (valid: flat, graph, graph_html, tree)", name)
}

// Extension returns the file extension used when a format is written to disk
func (f Format) Extension() string {
	switch f {
	case GraphHTML:
		return "html"
	case Tree:
		return "callgrind"
	default:
		return "txt"
	}
}

// Render writes r to w in the given format. Rendering does not modify r.
func Render(w io.Writer, r *Report, f Format) error {
	switch f {
	case Flat:
		return RenderFlat(w, r)
	case Graph:
		return RenderGraph(w, r)
	case GraphHTML:
		return RenderGraphHTML(w, r)
	case Tree:
		return RenderTree(w, r)
	}
	return fmt.Errorf("unknown profile format %q", f)
}

func percent(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
