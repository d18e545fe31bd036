package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftest/pkg/config"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		configPath  string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.perftest-config)")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perft-config version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: subcommand required\n\n")
		printUsage()
		os.Exit(2)
	}

	subcommand := args[0]

	if configPath != "" {
		os.Setenv(config.EnvConfig, configPath)
	}

	switch subcommand {
	case "init":
		handleInit(args[1:])
	case "set":
		handleSet(args[1:])
	case "get":
		handleGet(args[1:])
	case "show":
		handleShow()
	case "validate":
		handleValidate()
	case "path":
		fmt.Println(config.GetConfigPath())
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(2)
	}
}

func handleInit(args []string) {
	var force bool
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	flags.BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	flags.Parse(args)

	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(os.Stderr, "Error: config file already exists at %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created config file at %s\n", configPath)
	fmt.Println("\nDefault configuration:")
	printValues(cfg, false)
	fmt.Println("\nEdit the file or use 'perft-config set' to customize.")
}

func handleSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: 'set' requires KEY and VALUE arguments\n\n")
		fmt.Fprintf(os.Stderr, "Usage: perft-config set KEY VALUE\n")
		fmt.Fprintf(os.Stderr, "\nValid keys:\n")
		printKeys(os.Stderr)
		os.Exit(2)
	}

	key, value := args[0], args[1]

	// Load the file alone so environment overrides are not written back
	cfg, err := loadFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try running 'perft-config init' first\n")
		os.Exit(1)
	}

	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Save(config.GetConfigPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, value)
}

func handleGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'get' requires KEY argument\n\n")
		fmt.Fprintf(os.Stderr, "Usage: perft-config get KEY\n")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(value)
}

func handleShow() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration from: %s\n\n", config.GetConfigPath())
	printValues(cfg, true)

	fmt.Println("\nEnvironment variable overrides:")
	for _, k := range config.Keys {
		if v := os.Getenv(k.Env); v != "" {
			if strings.HasSuffix(k.Name, "secret_key") {
				v = "********"
			}
			fmt.Printf("  %s=%s (overrides %s)\n", k.Env, v, k.Name)
		}
	}
}

func handleValidate() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration is valid")
}

func loadFile() (*config.Config, error) {
	cfg := config.DefaultConfig()
	data, err := os.ReadFile(config.GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := cfg.Unmarshal(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printValues(cfg *config.Config, expand bool) {
	for _, k := range config.Keys {
		value, _ := cfg.Get(k.Name)
		switch {
		case k.Name == "archive.secret_key" && value != "":
			value = "********"
		case expand && k.Name == "database":
			value = cfg.GetDatabasePath()
		case expand && k.Name == "output_dir":
			value = cfg.GetOutputDir()
		}
		fmt.Printf("  %-20s %s\n", k.Name+":", value)
	}
}

func printKeys(w *os.File) {
	for _, k := range config.Keys {
		fmt.Fprintf(w, "  %-20s %s\n", k.Name, k.Description)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perft-config [OPTIONS] SUBCOMMAND\n\n")
	fmt.Fprintf(os.Stderr, "Manage perftest configuration\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  init          Create default config file\n")
	fmt.Fprintf(os.Stderr, "  set KEY VAL   Set configuration value\n")
	fmt.Fprintf(os.Stderr, "  get KEY       Get configuration value\n")
	fmt.Fprintf(os.Stderr, "  show          Show all configuration\n")
	fmt.Fprintf(os.Stderr, "  validate      Check the effective configuration\n")
	fmt.Fprintf(os.Stderr, "  path          Show config file path\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("perft-config - Manage perftest configuration\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Manages configuration for the perft commands. Configuration is stored in\n")
	fmt.Printf("  ~/.perftest-config by default, may be supplemented by a .env file and can be\n")
	fmt.Printf("  overridden with environment variables.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perft-config [OPTIONS] SUBCOMMAND\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  init          Create default configuration file\n")
	fmt.Printf("  set KEY VAL   Set a configuration value\n")
	fmt.Printf("  get KEY       Get a configuration value\n")
	fmt.Printf("  show          Display all configuration values\n")
	fmt.Printf("  validate      Check the effective configuration\n")
	fmt.Printf("  path          Show the config file path\n\n")

	fmt.Printf("CONFIGURATION KEYS:\n")
	printKeys(os.Stdout)

	fmt.Printf("\nENVIRONMENT VARIABLES:\n")
	fmt.Printf("  %-28s Path to config file\n", config.EnvConfig)
	for _, k := range config.Keys {
		fmt.Printf("  %-28s Override %s\n", k.Env, k.Name)
	}

	fmt.Printf("\nOPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Create default config\n")
	fmt.Printf("  perft-config init\n\n")

	fmt.Printf("  # Record the application version in history rows\n")
	fmt.Printf("  perft-config set app_version 2.3.1\n\n")

	fmt.Printf("  # Abort cases that run longer than a minute\n")
	fmt.Printf("  perft-config set timeout 1m\n\n")

	fmt.Printf("  # View all configuration\n")
	fmt.Printf("  perft-config show\n\n")
}
