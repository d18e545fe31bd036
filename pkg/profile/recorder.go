package profile

import (
	"bytes"
	"fmt"
	"runtime/pprof"
	"strings"
	"time"

	pprofile "github.com/google/pprof/profile"
)

// Recorder collects a call graph while started. It satisfies the window
// package's Instrument interface.
type Recorder interface {
	Start() error
	Stop() error
	// Report builds the call graph of the recorded interval, fixed to total
	Report(root string, total time.Duration) (*Report, error)
}

// harnessFrames are dropped from sampled stacks so the graph starts at the
// measured body
var harnessFrames = []string{
	"runtime.goexit",
	"github.com/mslinn/perftest/pkg/window.",
}

// CPURecorder samples the process with runtime/pprof
type CPURecorder struct {
	buf bytes.Buffer
}

// NewCPURecorder creates a recorder backed by the Go CPU profiler
func NewCPURecorder() *CPURecorder {
	return &CPURecorder{}
}

// Start begins CPU profiling. Only one CPU profile may be active per process.
func (c *CPURecorder) Start() error {
	c.buf.Reset()
	if err := pprof.StartCPUProfile(&c.buf); err != nil {
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	return nil
}

// Stop ends CPU profiling
func (c *CPURecorder) Stop() error {
	pprof.StopCPUProfile()
	return nil
}

// Report parses the recorded profile into a call graph
func (c *CPURecorder) Report(root string, total time.Duration) (*Report, error) {
	b := NewBuilder(root)
	if c.buf.Len() == 0 {
		return b.Finish(total), nil
	}

	prof, err := pprofile.Parse(bytes.NewReader(c.buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse CPU profile: %w", err)
	}

	if err := addProfile(b, prof); err != nil {
		return nil, err
	}
	return b.Finish(total), nil
}

// addProfile feeds every sample of a parsed pprof profile into b
func addProfile(b *Builder, prof *pprofile.Profile) error {
	valueIndex := -1
	for i, st := range prof.SampleType {
		if st.Type == "cpu" {
			valueIndex = i
			break
		}
	}
	if valueIndex < 0 {
		return fmt.Errorf("profile has no cpu sample type")
	}

	for _, s := range prof.Sample {
		b.AddStack(sampleFrames(s), time.Duration(s.Value[valueIndex]))
	}
	return nil
}

// sampleFrames flattens a sample's locations, leaf first, expanding inlined
// functions and dropping harness frames
func sampleFrames(s *pprofile.Sample) []Frame {
	var frames []Frame
	for _, loc := range s.Location {
		for _, line := range loc.Line {
			if line.Function == nil || isHarnessFrame(line.Function.Name) {
				continue
			}
			frames = append(frames, Frame{
				Function: line.Function.Name,
				File:     line.Function.Filename,
				Line:     line.Line,
			})
		}
	}
	return frames
}

func isHarnessFrame(name string) bool {
	for _, prefix := range harnessFrames {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
