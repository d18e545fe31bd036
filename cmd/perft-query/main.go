package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftest/pkg/checksum"
	"github.com/mslinn/perftest/pkg/config"
	"github.com/mslinn/perftest/pkg/database"
	"github.com/mslinn/perftest/pkg/metric"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dbPath      string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")

	// Stop parsing at first non-flag argument (the subcommand)
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if showVersion {
		fmt.Printf("perft-query version %s\n", version)
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 || showHelp {
		printHelp()
		os.Exit(0)
	}

	subcommand := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}

	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	db, err := database.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	var code int
	switch subcommand {
	case "runs":
		code = handleRuns(db, args[1:], debug)
	case "results":
		code = handleResults(db, args[1:])
	case "history":
		code = handleHistory(db, args[1:], debug)
	case "stats":
		code = handleStats(db, args[1:])
	case "verify":
		code = handleVerify(db, args[1:], cfg.GetOutputDir(), debug)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		code = 2
	}

	db.Close()
	os.Exit(code)
}

func handleRuns(db *database.DB, args []string, debug bool) int {
	fs := pflag.NewFlagSet("runs", pflag.ExitOnError)
	modeName := fs.String("mode", "", "Only show runs of this mode (benchmark or profile)")
	limit := fs.Int("limit", 20, "Maximum number of runs to display")

	fs.Parse(args)

	runs, err := db.ListRuns(*modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		return 1
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return 0
	}

	if len(runs) > *limit {
		runs = runs[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMode\tStarted\tDuration\tStatus\tApp\tRuntime\tNotes")
	fmt.Fprintln(w, "--\t----\t-------\t--------\t------\t---\t-------\t-----")

	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Mode, run.StartedAt.Format("2006-01-02 15:04:05"),
			duration, run.Status, orDash(run.App), run.Runtime, run.Notes)
	}
	w.Flush()

	if debug {
		fmt.Printf("\nShowing %d runs\n", len(runs))
	}
	return 0
}

func handleResults(db *database.DB, args []string) int {
	fs := pflag.NewFlagSet("results", pflag.ExitOnError)
	runID := fs.Int64("run-id", 0, "Run ID (required)")

	fs.Parse(args)

	if *runID == 0 {
		fmt.Fprintf(os.Stderr, "Error: --run-id is required\n")
		return 2
	}

	run, err := db.GetRun(*runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: run %d not found: %v\n", *runID, err)
		return 1
	}

	results, err := db.ListCaseResults(run.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing results: %v\n", err)
		return 1
	}

	fmt.Printf("Results for run %d (%s, %s, %s):\n", run.ID, run.Mode, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %s %s on %s\n\n", orDash(run.App), run.Runtime, run.Platform)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Case\tStatus\tWarmup\tError")
	fmt.Fprintln(w, "----\t------\t------\t-----")
	for _, r := range results {
		warmup := "-"
		if r.WarmupMs != nil {
			warmup = metric.Format(metric.WallTime, *r.WarmupMs)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.TestCase, r.Status, warmup, orDash(r.Error))
	}
	w.Flush()
	return 0
}

func handleHistory(db *database.DB, args []string, debug bool) int {
	fs := pflag.NewFlagSet("history", pflag.ExitOnError)
	testCase := fs.String("case", "", "Test case name (required)")
	metricName := fs.String("metric", "wall_time", "Metric name")
	limit := fs.Int("limit", 0, "Maximum number of measurements to display (0 = all)")

	fs.Parse(args)

	if *testCase == "" {
		fmt.Fprintf(os.Stderr, "Error: --case is required\n")
		return 2
	}
	kind, err := metric.ParseKind(*metricName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ms, err := db.ListMeasurements(*testCase, kind.String(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing measurements: %v\n", err)
		return 1
	}

	if len(ms) == 0 {
		fmt.Printf("No %s measurements for %s\n", kind, *testCase)
		return 0
	}

	fmt.Printf("%s %s:\n\n", *testCase, kind)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Run\tIndex\tValue\tRecorded")
	fmt.Fprintln(w, "---\t-----\t-----\t--------")
	for _, m := range ms {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", m.RunID, m.RunIndex, metric.Format(kind, m.Value), m.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()

	if debug {
		fmt.Printf("\nTotal measurements: %d\n", len(ms))
	}
	return 0
}

func handleStats(db *database.DB, args []string) int {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	testCase := fs.String("case", "", "Test case name (default: all cases)")

	fs.Parse(args)

	stats, err := db.Stats(*testCase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing stats: %v\n", err)
		return 1
	}

	if len(stats) == 0 {
		fmt.Println("No measurements recorded")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Case\tMetric\tCount\tMean\tMin\tMax")
	fmt.Fprintln(w, "----\t------\t-----\t----\t---\t---")
	for _, s := range stats {
		kind, err := metric.ParseKind(s.Metric)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\t%.3f\t%.3f\n", s.TestCase, s.Metric, s.Count, s.Mean, s.Min, s.Max)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", s.TestCase, s.Metric, s.Count,
			metric.Format(kind, s.Mean), metric.Format(kind, s.Min), metric.Format(kind, s.Max))
	}
	w.Flush()
	return 0
}

func handleVerify(db *database.DB, args []string, outputDir string, debug bool) int {
	fs := pflag.NewFlagSet("verify", pflag.ExitOnError)
	dir := fs.String("dir", outputDir, "History directory to scan for files without a recorded checksum")

	fs.Parse(args)

	results, err := checksum.VerifyAll(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying history files: %v\n", err)
		return 1
	}

	failed := 0
	for _, v := range results {
		if v.OK() {
			if debug {
				fmt.Printf("  OK:        %s (%s recorded, %s now)\n", v.FilePath,
					checksum.FormatSize(v.RecordedSize), checksum.FormatSize(v.CurrentSize))
			}
			continue
		}
		failed++
		fmt.Printf("  %-10s %s: %s\n", fmt.Sprintf("%s:", strings.ToUpper(v.Status)), v.FilePath, v.Detail)
	}

	// a missing directory just means nothing was written there yet
	var untracked []*checksum.FileChecksum
	if _, err := os.Stat(*dir); err == nil {
		if untracked, err = checksum.Untracked(db, *dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", *dir, err)
			return 1
		}
	}
	for _, cs := range untracked {
		fmt.Printf("  %-10s %s (%s, no recorded checksum)\n", "UNTRACKED:", cs.Path, checksum.FormatSize(cs.SizeBytes))
	}

	if len(results) == 0 && len(untracked) == 0 {
		fmt.Println("No history files recorded")
		return 0
	}

	fmt.Printf("\nVerified %d history files, %d failed, %d untracked\n", len(results), failed, len(untracked))
	if failed > 0 {
		return 1
	}
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perft-query [OPTIONS] COMMAND [ARGS...]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  runs       List harness invocations\n")
	fmt.Fprintf(os.Stderr, "  results    Show case outcomes of one run\n")
	fmt.Fprintf(os.Stderr, "  history    Show stored measurements of a case and metric\n")
	fmt.Fprintf(os.Stderr, "  stats      Show count, mean, min and max per case and metric\n")
	fmt.Fprintf(os.Stderr, "  verify     Check that history files were only appended to\n")
	fmt.Fprintf(os.Stderr, "             (--dir lists files with no recorded checksum)\n")
}

func printHelp() {
	fmt.Printf("perft-query - Query recorded performance measurements\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Query the SQLite mirror written by perft to list runs, inspect\n")
	fmt.Printf("  measurement history and verify the integrity of history files.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perft-query [OPTIONS] COMMAND [ARGS...]\n\n")

	fmt.Printf("COMMANDS:\n")
	fmt.Printf("  runs       List harness invocations\n")
	fmt.Printf("  results    Show case outcomes of one run\n")
	fmt.Printf("  history    Show stored measurements of a case and metric\n")
	fmt.Printf("  stats      Show count, mean, min and max per case and metric\n")
	fmt.Printf("  verify     Check that history files were only appended to\n\n")

	fmt.Printf("GLOBAL OPTIONS:\n")
	fmt.Printf("  -h, --help         Show this help message\n")
	fmt.Printf("  -V, --version      Show version\n")
	fmt.Printf("  -d, --debug        Enable debug output\n")
	fmt.Printf("  -v, --verbose      Enable verbose output (alias for --debug)\n")
	fmt.Printf("  --db PATH          Path to SQLite database\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # Show the last 5 benchmark runs\n")
	fmt.Printf("  perft-query runs --mode benchmark --limit 5\n\n")

	fmt.Printf("  # Show wall time history of the Homepage case\n")
	fmt.Printf("  perft-query history --case Homepage --metric wall_time\n\n")

	fmt.Printf("  # Show statistics for every case\n")
	fmt.Printf("  perft-query stats\n\n")

	fmt.Printf("  # Check history files against their recorded checksums\n")
	fmt.Printf("  perft-query verify\n\n")
}
