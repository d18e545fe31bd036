package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftest/pkg/harness"
	"github.com/mslinn/perftest/pkg/mode"
	"github.com/mslinn/perftest/pkg/profile"
	"github.com/mslinn/perftest/pkg/report"
	"github.com/mslinn/perftest/pkg/suite"
	_ "github.com/mslinn/perftest/pkg/workload"
)

var version = "dev" // Set by -ldflags during build

type request struct {
	expr   string
	times  int
	format profile.Format
}

func main() {
	var (
		showVersion bool
		showHelp    bool
		output      string
		timeout     time.Duration
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.StringVarP(&output, "output", "o", "", "Write the report to this file instead of stdout")
	pflag.DurationVar(&timeout, "timeout", 0, "Abort the case after this long (0 = no limit)")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perft-profiler version %s\n", version)
		os.Exit(0)
	}
	if showHelp {
		printHelp()
		os.Exit(0)
	}

	req, err := parseArgs(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(2)
	}

	tc, err := suite.Default.Expression(req.expr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := harness.NewRunner(mode.NewProfile(mode.WithRepeat(req.times)), timeout)
	bundle, err := runner.RunCase(ctx, tc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f

		// the report goes to the file, so the summary can go to stdout
		report.NewConsoleSink().Report(ctx, bundle)
	}

	if err := report.NewProfileWriterSink(w, req.format).Report(ctx, bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs reads EXPR [TIMES] [FORMAT]; TIMES and FORMAT may be given in either order
func parseArgs(args []string) (request, error) {
	req := request{times: 1, format: profile.Flat}
	if len(args) == 0 {
		return req, fmt.Errorf("an expression is required")
	}
	if len(args) > 3 {
		return req, fmt.Errorf("too many arguments")
	}
	req.expr = args[0]

	for _, arg := range args[1:] {
		if n, err := strconv.Atoi(arg); err == nil {
			if n < 1 {
				return req, fmt.Errorf("times must be at least 1, got %d", n)
			}
			req.times = n
			continue
		}
		f, err := profile.ParseFormat(arg)
		if err != nil {
			return req, err
		}
		req.format = f
	}
	return req, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perft-profiler [OPTIONS] EXPR [TIMES] [flat|graph|graph_html|tree]\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("perft-profiler - Profile an expression\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Runs EXPR once as a warmup, then TIMES times (default 1) under the CPU\n")
	fmt.Printf("  profiler, and renders the call graph. An expression is the name of a\n")
	fmt.Printf("  built-in case or sh:<command line>.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perft-profiler [OPTIONS] EXPR [TIMES] [FORMAT]\n\n")

	fmt.Printf("FORMATS:\n")
	fmt.Printf("  flat          One row per function sorted by self time (default)\n")
	fmt.Printf("  graph         Callers and callees of every function\n")
	fmt.Printf("  graph_html    The graph view as an HTML page\n")
	fmt.Printf("  tree          Callgrind format for KCachegrind\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Flat profile of 20 calls of the json workload\n")
	fmt.Printf("  perft-profiler json 20\n\n")

	fmt.Printf("  # Callgrind output for KCachegrind\n")
	fmt.Printf("  perft-profiler fib 50 tree -o fib.callgrind\n\n")
}
