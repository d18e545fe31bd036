package profile

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	pprofile "github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(names ...string) []Frame {
	out := make([]Frame, len(names))
	for i, n := range names {
		out[i] = Frame{Function: n, File: n + ".go"}
	}
	return out
}

// sampleReport: Homepage -> main.handler -> {main.render, main.query}
func sampleReport(total time.Duration) *Report {
	b := NewBuilder("Homepage")
	b.AddStack(frames("main.render", "main.handler"), 4*time.Millisecond)
	b.AddStack(frames("main.query", "main.handler"), 3*time.Millisecond)
	b.AddStack(frames("main.handler"), 1*time.Millisecond)
	return b.Finish(total)
}

func TestBuilder_SelfAndTotal(t *testing.T) {
	r := sampleReport(10 * time.Millisecond)

	handler, ok := r.Node("main.handler")
	require.True(t, ok)
	assert.Equal(t, 1*time.Millisecond, handler.Self)
	assert.Equal(t, 8*time.Millisecond, handler.Total)
	assert.EqualValues(t, 3, handler.Calls)

	root, ok := r.Node("Homepage")
	require.True(t, ok)
	assert.Equal(t, 2*time.Millisecond, root.Self, "unsampled time goes to the root")
	assert.Equal(t, 10*time.Millisecond, root.Total)
}

func TestBuilder_SelfTimeSumsToTotal(t *testing.T) {
	for _, total := range []time.Duration{8 * time.Millisecond, 10 * time.Millisecond, 5 * time.Millisecond, 7_777_777} {
		r := sampleReport(total)
		assert.Equal(t, total, r.SelfTotal(), "total %s", total)
	}
}

func TestBuilder_ScalesOversampledStacks(t *testing.T) {
	r := sampleReport(4 * time.Millisecond)

	render, _ := r.Node("main.render")
	assert.Equal(t, 2*time.Millisecond, render.Self)
	assert.Equal(t, 4*time.Millisecond, r.SelfTotal())
}

func TestBuilder_Edges(t *testing.T) {
	r := sampleReport(10 * time.Millisecond)

	callees := r.Callees("main.handler")
	require.Len(t, callees, 2)
	assert.Equal(t, "main.render", callees[0].Callee)
	assert.Equal(t, 4*time.Millisecond, callees[0].Total)
	assert.Equal(t, "main.query", callees[1].Callee)

	callers := r.Callers("main.handler")
	require.Len(t, callers, 1)
	assert.Equal(t, "Homepage", callers[0].Caller)
	assert.Equal(t, 8*time.Millisecond, callers[0].Total)
	assert.Equal(t, 1*time.Millisecond, callers[0].Self)
}

func TestBuilder_RecursionCountsOnce(t *testing.T) {
	b := NewBuilder("root")
	b.AddStack(frames("fib", "fib", "fib"), time.Millisecond)
	r := b.Finish(time.Millisecond)

	fib, _ := r.Node("fib")
	assert.Equal(t, time.Millisecond, fib.Total)
	assert.Equal(t, time.Millisecond, fib.Self)
	assert.EqualValues(t, 1, fib.Calls)
}

func TestNodesSortedBySelf(t *testing.T) {
	r := sampleReport(10 * time.Millisecond)
	var names []string
	for _, n := range r.Nodes() {
		names = append(names, n.Function)
	}
	want := []string{"main.render", "main.query", "Homepage", "main.handler"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("node order mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderFlat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderFlat(&buf, sampleReport(10*time.Millisecond)))
	out := buf.String()

	assert.Contains(t, out, "Total: 10.000 ms")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3+1+4)
	assert.Contains(t, lines[4], "40.00")
	assert.Contains(t, lines[4], "main.render")
	assert.Contains(t, lines[7], "main.handler")
}

func TestRenderGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderGraph(&buf, sampleReport(10*time.Millisecond)))
	out := buf.String()

	assert.Contains(t, out, "80.00%")
	// every stack entered the handler from the root; render was reached once
	assert.Contains(t, out, "3/3")
	assert.Contains(t, out, "1/1")
}

func TestRenderGraphHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderGraphHTML(&buf, sampleReport(10*time.Millisecond)))
	out := buf.String()

	assert.Contains(t, out, "<title>Profile: Homepage</title>")
	assert.Contains(t, out, `class="primary"`)
	assert.Contains(t, out, `<a href="#fn`)
}

func TestRenderTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTree(&buf, sampleReport(10*time.Millisecond)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# callgrind format\n"))
	assert.Contains(t, out, "events: Nanoseconds\n")
	assert.Contains(t, out, "summary: 10000000\n")
	assert.Contains(t, out, "fn=main.handler\n0 1000000\ncfl=main.render.go\ncfn=main.render\ncalls=1 0\n0 4000000\n")
	assert.Contains(t, out, "fl=???\nfn=Homepage\n0 2000000\n")
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("calltree")
	assert.Error(t, err)
	assert.Equal(t, "html", GraphHTML.Extension())
	assert.Equal(t, "callgrind", Tree.Extension())
}

func TestAddProfile(t *testing.T) {
	handler := &pprofile.Function{ID: 1, Name: "main.handler", Filename: "main.go"}
	render := &pprofile.Function{ID: 2, Name: "main.render", Filename: "render.go"}
	goexit := &pprofile.Function{ID: 3, Name: "runtime.goexit", Filename: "asm.s"}
	locHandler := &pprofile.Location{ID: 1, Line: []pprofile.Line{{Function: handler, Line: 10}}}
	locRender := &pprofile.Location{ID: 2, Line: []pprofile.Line{{Function: render, Line: 20}}}
	locExit := &pprofile.Location{ID: 3, Line: []pprofile.Line{{Function: goexit}}}

	prof := &pprofile.Profile{
		SampleType: []*pprofile.ValueType{{Type: "samples", Unit: "count"}, {Type: "cpu", Unit: "nanoseconds"}},
		Sample: []*pprofile.Sample{
			{Location: []*pprofile.Location{locRender, locHandler, locExit}, Value: []int64{1, 3_000_000}},
			{Location: []*pprofile.Location{locHandler, locExit}, Value: []int64{1, 1_000_000}},
		},
	}

	b := NewBuilder("Homepage")
	require.NoError(t, addProfile(b, prof))
	r := b.Finish(5 * time.Millisecond)

	_, hasExit := r.Node("runtime.goexit")
	assert.False(t, hasExit)
	h, _ := r.Node("main.handler")
	assert.Equal(t, 4*time.Millisecond, h.Total)
	assert.Equal(t, 5*time.Millisecond, r.SelfTotal())
}

func TestAddProfile_NoCPUType(t *testing.T) {
	prof := &pprofile.Profile{SampleType: []*pprofile.ValueType{{Type: "alloc_space", Unit: "bytes"}}}
	assert.Error(t, addProfile(NewBuilder("x"), prof))
}

func burn(d time.Duration) int {
	sum := 0
	for start := time.Now(); time.Since(start) < d; {
		for i := 0; i < 10_000; i++ {
			sum += i % 3
		}
	}
	return sum
}

func TestCPURecorder(t *testing.T) {
	rec := NewCPURecorder()
	require.NoError(t, rec.Start())
	burn(50 * time.Millisecond)
	require.NoError(t, rec.Stop())

	r, err := rec.Report("burn", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, r.SelfTotal())
	assert.Equal(t, "burn", r.Root)
}
