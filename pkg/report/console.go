package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mslinn/perftest/pkg/metric"
	"github.com/mslinn/perftest/pkg/mode"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	dim    = "\033[2m"
	yellow = "\033[33m"
)

// ConsoleSink prints a summary of each case as soon as it completes
type ConsoleSink struct {
	out   io.Writer
	color bool
}

// NewConsoleSink writes to stdout, with color when stdout is a terminal
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{
		out:   os.Stdout,
		color: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// NewConsoleSinkWithWriter writes to w without color (for testing and redirection)
func NewConsoleSinkWithWriter(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

func (c *ConsoleSink) Name() string { return "console" }

// Report prints the warmup line and one mean line per metric
func (c *ConsoleSink) Report(ctx context.Context, b *mode.Bundle) error {
	c.printf(bold, "%s (%s, %d run(s))\n", b.TestCase, b.Mode, len(b.Runs))
	c.printf(dim, "  %-14s %s\n", "warmup", metric.Format(metric.WallTime, float64(b.Warmup)/float64(time.Millisecond)))
	for _, k := range b.Kinds() {
		mean, _ := b.Mean(k)
		c.printf("", "  %-14s %s\n", k.String(), metric.Format(k, mean))
	}
	return nil
}

// ReportError prints a failed case
func (c *ConsoleSink) ReportError(testCase string, m mode.Mode, err error) {
	c.printf(bold, "%s (%s)\n", testCase, m)
	c.printf(red, "  ERROR %v\n", err)
}

// Warn prints a non-fatal problem such as a failed history write
func (c *ConsoleSink) Warn(format string, args ...interface{}) {
	c.printf(yellow, "  warning: "+format+"\n", args...)
}

func (c *ConsoleSink) Close() error { return nil }

func (c *ConsoleSink) printf(style, format string, args ...interface{}) {
	if c.color && style != "" {
		fmt.Fprint(c.out, style)
		fmt.Fprintf(c.out, format, args...)
		fmt.Fprint(c.out, reset)
		return
	}
	fmt.Fprintf(c.out, format, args...)
}
