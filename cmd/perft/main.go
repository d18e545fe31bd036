package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mslinn/perftest/pkg/archive"
	"github.com/mslinn/perftest/pkg/config"
	"github.com/mslinn/perftest/pkg/database"
	"github.com/mslinn/perftest/pkg/harness"
	"github.com/mslinn/perftest/pkg/logging"
	"github.com/mslinn/perftest/pkg/mode"
	"github.com/mslinn/perftest/pkg/profile"
	"github.com/mslinn/perftest/pkg/report"
	"github.com/mslinn/perftest/pkg/suite"
	_ "github.com/mslinn/perftest/pkg/workload"
)

var version = "dev" // Set by -ldflags during build

// Subcommands dispatched to the individual perft-* tools
var subcommands = []struct {
	name        string
	description string
}{
	{"config", "Manage configuration"},
	{"query", "Query recorded runs and verify history files"},
	{"benchmarker", "Time expressions by wall clock"},
	{"profiler", "Profile an expression"},
}

var (
	modeName    string
	suiteFile   string
	runs        int
	timeout     time.Duration
	outputDir   string
	dbPath      string
	noDB        bool
	metricsFile string
	useArchive  bool
	formats     []string
	list        bool
	debug       bool
	configPath  string
	showVersion bool
	showHelp    bool
)

func main() {
	if len(os.Args) > 1 && isSubcommand(os.Args[1]) {
		dispatch(os.Args[1], os.Args[2:])
		return
	}

	pflag.StringVarP(&modeName, "mode", "m", string(mode.BenchmarkMode), "Measurement mode: benchmark or profile")
	pflag.StringVarP(&suiteFile, "suite", "s", "", "YAML suite file describing the cases to run")
	pflag.IntVarP(&runs, "runs", "n", 0, "Measured runs per case in benchmark mode (default from config)")
	pflag.DurationVar(&timeout, "timeout", 0, "Abort a case after this long (default from config)")
	pflag.StringVarP(&outputDir, "output-dir", "o", "", "Directory for history and profile files")
	pflag.StringVar(&dbPath, "db", "", "SQLite database path")
	pflag.BoolVar(&noDB, "no-db", false, "Do not mirror results into SQLite")
	pflag.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus text metrics to this file")
	pflag.BoolVar(&useArchive, "archive", false, "Upload the output directory to the configured bucket")
	pflag.StringSliceVar(&formats, "formats", []string{string(profile.Flat)}, "Profile report formats (flat, graph, graph_html, tree)")
	pflag.BoolVarP(&list, "list", "l", false, "List the built-in cases and exit")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	pflag.StringVar(&configPath, "config", "", "Configuration file (default ~/.perftest-config)")
	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perft version %s\n", version)
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

	os.Exit(run(pflag.Args()))
}

func isSubcommand(name string) bool {
	for _, sc := range subcommands {
		if sc.name == name {
			return true
		}
	}
	return false
}

// dispatch replaces this process with perft-<name> so it receives signals directly
func dispatch(name string, rest []string) {
	cmdName := "perft-" + name

	cmdPath, err := exec.LookPath(cmdName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: command '%s' not found in PATH\n", cmdName)
		fmt.Fprintf(os.Stderr, "Make sure it is installed (try: make install)\n")
		os.Exit(1)
	}

	args := append([]string{filepath.Base(cmdPath)}, rest...)
	if err := syscall.Exec(cmdPath, args, os.Environ()); err != nil {
		cmd := exec.Command(cmdPath, rest...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				os.Exit(exitErr.ExitCode())
			}
			fmt.Fprintf(os.Stderr, "Error executing %s: %v\n", cmdName, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// run executes the harness and returns the process exit code
func run(exprs []string) int {
	if configPath != "" {
		os.Setenv(config.EnvConfig, configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 2
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 2
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		return 2
	}
	defer logger.Sync()

	cases, err := resolveCases(exprs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	strategy, err := buildStrategy(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	caseTimeout, err := cfg.GetTimeout()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	env := report.DetectEnvironment(cfg.AppVersion, cfg.FrameworkVersion)
	sinks, db, err := buildSinks(cfg, strategy.Mode(), env, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if db != nil {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	environment := cfg.Environment()
	h := harness.New(harness.Options{
		Strategy:    strategy,
		Timeout:     caseTimeout,
		Environment: &environment,
		Logger:      logger,
	}, sinks...)

	summary := h.Run(ctx, cases)
	if err := h.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Printf("\n%s\n", summary)
	if summary.Failed() {
		return 1
	}
	return 0
}

// applyFlags lets command-line flags override the loaded configuration
func applyFlags(cfg *config.Config) {
	if runs != 0 {
		cfg.BenchmarkRuns = runs
	}
	if timeout != 0 {
		cfg.Timeout = timeout.String()
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

func resolveCases(exprs []string) ([]suite.TestCase, error) {
	var cases []suite.TestCase
	if suiteFile != "" {
		loaded, err := suite.LoadFile(suiteFile, suite.Default)
		if err != nil {
			return nil, err
		}
		cases = append(cases, loaded...)
	}

	for _, expr := range exprs {
		tc, err := suite.Default.Expression(expr)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases given; name built-in cases, sh:<command> expressions or pass --suite")
	}
	return cases, nil
}

func buildStrategy(cfg *config.Config) (mode.Strategy, error) {
	m, err := mode.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	if m == mode.ProfileMode {
		return mode.NewProfile(), nil
	}
	return mode.NewBenchmark(cfg.BenchmarkRuns), nil
}

func parseFormats() ([]profile.Format, error) {
	var out []profile.Format
	for _, name := range formats {
		f, err := profile.ParseFormat(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// buildSinks wires the sinks for mode m. The archive sink comes last so it
// uploads after every other sink has closed.
func buildSinks(cfg *config.Config, m mode.Mode, env report.Environment, logger *zap.Logger) ([]report.Sink, *database.DB, error) {
	dir := cfg.GetOutputDir()

	var profileFormats []profile.Format
	if m == mode.ProfileMode {
		var err error
		if profileFormats, err = parseFormats(); err != nil {
			return nil, nil, err
		}
	}

	var uploader *archive.Uploader
	if useArchive {
		if !cfg.Archive.Enabled() {
			return nil, nil, fmt.Errorf("--archive needs archive.endpoint and archive.bucket in the configuration")
		}
		var err error
		if uploader, err = archive.New(cfg.Archive, logger); err != nil {
			return nil, nil, err
		}
	}

	runID := uuid.NewString()
	var db *database.DB
	var dbSink *report.DatabaseSink
	if !noDB {
		if err := cfg.ValidateDatabase(); err != nil {
			return nil, nil, err
		}
		var err error
		db, err = database.Open(cfg.GetDatabasePath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		dbSink, err = report.NewDatabaseSink(db, m, env, logger)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create run record: %w", err)
		}
		runID = dbSink.Run().UUID
	}

	sinks := []report.Sink{report.NewConsoleSink()}
	switch m {
	case mode.BenchmarkMode:
		var opts []report.CsvOption
		if dbSink != nil {
			opts = append(opts, report.WithLedger(dbSink))
		}
		sinks = append(sinks, report.NewCsvSink(dir, env, logger, opts...))
	case mode.ProfileMode:
		sinks = append(sinks, report.NewProfileFileSink(dir, profileFormats...))
	}

	if dbSink != nil {
		sinks = append(sinks, dbSink)
	}
	if cfg.MetricsFile != "" {
		sinks = append(sinks, report.NewPrometheusSink(cfg.MetricsFile, env))
	}
	if uploader != nil {
		sinks = append(sinks, archive.NewSink(context.Background(), uploader, dir, runID))
	}

	logger.Debug("sinks ready", zap.Int("count", len(sinks)), zap.String("run", runID))
	return sinks, db, nil
}

func printHelp() {
	fmt.Printf("perft - Performance test harness\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Runs test cases in benchmark or profile mode and reports each one to the\n")
	fmt.Printf("  console, CSV history files, SQLite and optional Prometheus and S3 sinks.\n")
	fmt.Printf("  Subcommands dispatch to the individual perft-* tools.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perft [OPTIONS] [EXPR...]\n")
	fmt.Printf("  perft <command> [options]\n\n")

	fmt.Printf("AVAILABLE COMMANDS:\n")
	for _, sc := range subcommands {
		fmt.Printf("  %-12s %s\n", sc.name, sc.description)
	}

	fmt.Printf("\nOPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Benchmark two built-in cases\n")
	fmt.Printf("  perft sort json\n\n")

	fmt.Printf("  # Benchmark a shell command with 10 measured runs\n")
	fmt.Printf("  perft -n 10 'sh:git status'\n\n")

	fmt.Printf("  # Profile every case of a suite and write graph reports\n")
	fmt.Printf("  perft -m profile -s suite.yaml --formats graph,graph_html\n\n")

	fmt.Printf("  # Show recent runs\n")
	fmt.Printf("  perft query runs\n\n")
}
