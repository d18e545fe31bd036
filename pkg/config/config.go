package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names read by Load and exported by Environment.Apply
const (
	EnvConfig           = "PERFTEST_CONFIG"
	EnvDatabase         = "PERFTEST_DB"
	EnvOutputDir        = "PERFTEST_OUTPUT_DIR"
	EnvAppVersion       = "PERFTEST_APP_VERSION"
	EnvFrameworkVersion = "PERFTEST_FRAMEWORK_VERSION"
	EnvBenchmarkRuns    = "PERFTEST_BENCHMARK_RUNS"
	EnvTimeout          = "PERFTEST_TIMEOUT"
	EnvLogLevel         = "PERFTEST_LOG_LEVEL"
	EnvLogFormat        = "PERFTEST_LOG_FORMAT"
	EnvCaching          = "PERFTEST_CACHING"
	EnvDependencyMode   = "PERFTEST_DEPENDENCY_MODE"
	EnvMetricsFile      = "PERFTEST_METRICS_FILE"
	EnvArchiveEndpoint  = "PERFTEST_ARCHIVE_ENDPOINT"
	EnvArchiveBucket    = "PERFTEST_ARCHIVE_BUCKET"
	EnvArchivePrefix    = "PERFTEST_ARCHIVE_PREFIX"
	EnvArchiveAccessKey = "PERFTEST_ARCHIVE_ACCESS_KEY"
	EnvArchiveSecretKey = "PERFTEST_ARCHIVE_SECRET_KEY"
	EnvArchiveInsecure  = "PERFTEST_ARCHIVE_INSECURE"
)

// Dependency loading modes
const (
	DependencyEager = "eager"
	DependencyLazy  = "lazy"
)

// DefaultBenchmarkRuns is the number of measured runs per benchmark invocation
const DefaultBenchmarkRuns = 4

// Config represents the perftest configuration
type Config struct {
	DatabasePath     string  `yaml:"database"`
	OutputDir        string  `yaml:"output_dir"`
	AppVersion       string  `yaml:"app_version"`
	FrameworkVersion string  `yaml:"framework_version"`
	BenchmarkRuns    int     `yaml:"benchmark_runs"`
	Timeout          string  `yaml:"timeout,omitempty"`
	LogLevel         string  `yaml:"log_level"`
	LogFormat        string  `yaml:"log_format"`
	Caching          bool    `yaml:"caching"`
	DependencyMode   string  `yaml:"dependency_mode"`
	MetricsFile      string  `yaml:"metrics_file,omitempty"`
	Archive          Archive `yaml:"archive,omitempty"`
}

// Archive locates the S3-compatible bucket that output directories are uploaded to
type Archive struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Insecure  bool   `yaml:"insecure,omitempty"`
}

// Enabled reports whether an archive destination is configured
func (a Archive) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	dbPath := "perftest.db"
	outputDir := "perftest"
	if homeDir, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(homeDir, ".perftest", "perftest.db")
		outputDir = filepath.Join(homeDir, ".perftest", "history")
	}
	return &Config{
		DatabasePath:   dbPath,
		OutputDir:      outputDir,
		BenchmarkRuns:  DefaultBenchmarkRuns,
		LogLevel:       "info",
		LogFormat:      "console",
		DependencyMode: DependencyLazy,
	}
}

// Load loads configuration from a .env file, the config file and environment variables
// Priority: environment variables > config file > defaults
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := DefaultConfig()

	configPath := GetConfigPath()
	if err := loadFromFile(cfg, configPath); err != nil {
		// Config file is optional, so we just skip if not found
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile walks up from the working directory and loads the first .env found.
// Variables already set in the environment are not overridden.
func loadEnvFile() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return nil
		}
		dir = parentDir
	}
}

func applyEnv(cfg *Config) error {
	fields := map[string]*string{
		EnvDatabase:         &cfg.DatabasePath,
		EnvOutputDir:        &cfg.OutputDir,
		EnvAppVersion:       &cfg.AppVersion,
		EnvFrameworkVersion: &cfg.FrameworkVersion,
		EnvTimeout:          &cfg.Timeout,
		EnvLogLevel:         &cfg.LogLevel,
		EnvLogFormat:        &cfg.LogFormat,
		EnvDependencyMode:   &cfg.DependencyMode,
		EnvMetricsFile:      &cfg.MetricsFile,
		EnvArchiveEndpoint:  &cfg.Archive.Endpoint,
		EnvArchiveBucket:    &cfg.Archive.Bucket,
		EnvArchivePrefix:    &cfg.Archive.Prefix,
		EnvArchiveAccessKey: &cfg.Archive.AccessKey,
		EnvArchiveSecretKey: &cfg.Archive.SecretKey,
	}
	for name, field := range fields {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv(EnvBenchmarkRuns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvBenchmarkRuns, v, err)
		}
		cfg.BenchmarkRuns = n
	}
	if v := os.Getenv(EnvCaching); v != "" {
		cfg.Caching = parseBool(v)
	}
	if v := os.Getenv(EnvArchiveInsecure); v != "" {
		cfg.Archive.Insecure = parseBool(v)
	}

	return nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return cfg.Unmarshal(data)
}

// Unmarshal overlays YAML settings onto cfg
func (cfg *Config) Unmarshal(data []byte) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Save saves the configuration to a file
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Archive credentials may be present
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every setting is usable
func (cfg *Config) Validate() error {
	var problems []string

	if cfg.DatabasePath == "" {
		problems = append(problems, "database must not be empty")
	}
	if cfg.OutputDir == "" {
		problems = append(problems, "output_dir must not be empty")
	}
	if cfg.BenchmarkRuns < 1 {
		problems = append(problems, fmt.Sprintf("benchmark_runs must be at least 1, got %d", cfg.BenchmarkRuns))
	}
	if _, err := cfg.GetTimeout(); err != nil {
		problems = append(problems, err.Error())
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level must be debug, info, warn or error, got %q", cfg.LogLevel))
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format must be console or json, got %q", cfg.LogFormat))
	}
	switch cfg.DependencyMode {
	case DependencyEager, DependencyLazy:
	default:
		problems = append(problems, fmt.Sprintf("dependency_mode must be eager or lazy, got %q", cfg.DependencyMode))
	}
	if cfg.Archive.Endpoint != "" && cfg.Archive.Bucket == "" {
		problems = append(problems, "archive.bucket is required when archive.endpoint is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateDatabase checks the database path and creates its directory
func (cfg *Config) ValidateDatabase() error {
	path := cfg.GetDatabasePath()
	if path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, ".perftest-config")
		} else {
			configPath = ".perftest-config"
		}
	}
	return configPath
}

// GetTimeout returns the per-case deadline; zero means none
func (cfg *Config) GetTimeout() (time.Duration, error) {
	if cfg.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	return d, nil
}

// GetDatabasePath returns the database path, expanding ~/ if needed
func (cfg *Config) GetDatabasePath() string {
	return expandHome(cfg.DatabasePath)
}

// GetOutputDir returns the history directory, expanding ~/ if needed
func (cfg *Config) GetOutputDir() string {
	return expandHome(cfg.OutputDir)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// Environment holds the settings that code under test reads from the process environment
type Environment struct {
	Caching        bool
	DependencyMode string
	LogLevel       string
}

// Environment returns the settings to export before the first case runs
func (cfg *Config) Environment() Environment {
	return Environment{
		Caching:        cfg.Caching,
		DependencyMode: cfg.DependencyMode,
		LogLevel:       cfg.LogLevel,
	}
}

// Apply exports the settings into the process environment
func (e Environment) Apply() error {
	vars := map[string]string{
		EnvCaching:        strconv.FormatBool(e.Caching),
		EnvDependencyMode: e.DependencyMode,
		EnvLogLevel:       e.LogLevel,
	}
	for name, value := range vars {
		if value == "" {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return nil
}
