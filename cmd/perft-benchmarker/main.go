package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftest/pkg/suite"
	"github.com/mslinn/perftest/pkg/timing"
	_ "github.com/mslinn/perftest/pkg/workload"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		list        bool
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&list, "list", "l", false, "List the built-in cases and exit")

	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if showVersion {
		fmt.Printf("perft-benchmarker version %s\n", version)
		os.Exit(0)
	}
	if showHelp {
		printHelp()
		os.Exit(0)
	}
	if list {
		for _, name := range suite.Default.Names() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	times, exprs, err := parseArgs(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := false
	for _, expr := range exprs {
		tc, err := suite.Default.Expression(expr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}

		elapsed := benchmark(ctx, expr, tc, times)
		fmt.Println(elapsed)
		if elapsed.Error != nil {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// parseArgs splits an optional leading repeat count from the expressions
func parseArgs(args []string) (int, []string, error) {
	times := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			if n < 1 {
				return 0, nil, fmt.Errorf("times must be at least 1, got %d", n)
			}
			times = n
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("at least one expression is required")
	}
	return times, args, nil
}

// benchmark times the body alone; setup and teardown run once around all calls
func benchmark(ctx context.Context, label string, tc suite.TestCase, times int) *timing.Elapsed {
	if tc.Setup != nil {
		if err := tc.Setup(ctx); err != nil {
			return &timing.Elapsed{Label: label, Error: fmt.Errorf("setup failed: %w", err)}
		}
	}

	elapsed := timing.Measure(label, times, func() error {
		return tc.Body(ctx)
	})

	if tc.Teardown != nil {
		if err := tc.Teardown(ctx); err != nil && elapsed.Error == nil {
			elapsed.Error = fmt.Errorf("teardown failed: %w", err)
		}
	}
	return elapsed
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perft-benchmarker [OPTIONS] [TIMES] EXPR...\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("perft-benchmarker - Time expressions by wall clock\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Calls each expression TIMES times (default 1) and prints the total\n")
	fmt.Printf("  and per-call wall time. An expression is the name of a built-in\n")
	fmt.Printf("  case or sh:<command line>.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perft-benchmarker [OPTIONS] [TIMES] EXPR...\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Time the sort workload 10 times\n")
	fmt.Printf("  perft-benchmarker 10 sort\n\n")

	fmt.Printf("  # Compare two shell commands\n")
	fmt.Printf("  perft-benchmarker 5 'sh:gzip -c go.sum >/dev/null' 'sh:bzip2 -c go.sum >/dev/null'\n\n")
}
