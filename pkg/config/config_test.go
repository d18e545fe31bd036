package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv isolates a test from the developer's environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvDatabase, EnvOutputDir, EnvAppVersion, EnvFrameworkVersion, EnvBenchmarkRuns,
		EnvTimeout, EnvLogLevel, EnvLogFormat, EnvCaching, EnvDependencyMode, EnvMetricsFile,
		EnvArchiveEndpoint, EnvArchiveBucket, EnvArchivePrefix, EnvArchiveAccessKey,
		EnvArchiveSecretKey, EnvArchiveInsecure,
	} {
		t.Setenv(name, "")
	}
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "missing-config"))
	t.Chdir(t.TempDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DatabasePath == "" {
		t.Error("DatabasePath should not be empty")
	}
	if cfg.OutputDir == "" {
		t.Error("OutputDir should not be empty")
	}
	if cfg.BenchmarkRuns != DefaultBenchmarkRuns {
		t.Errorf("BenchmarkRuns = %d, want %d", cfg.BenchmarkRuns, DefaultBenchmarkRuns)
	}
	if cfg.Caching {
		t.Error("Caching should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	cfg := DefaultConfig()
	cfg.DatabasePath = "/tmp/test.db"
	cfg.AppVersion = "2.1.0"
	cfg.BenchmarkRuns = 8
	cfg.Timeout = "30s"
	cfg.Caching = true
	cfg.Archive = Archive{Endpoint: "localhost:9000", Bucket: "perf"}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}

	loaded := &Config{}
	if err := loadFromFile(loaded, configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.DatabasePath != cfg.DatabasePath {
		t.Errorf("DatabasePath mismatch: expected '%s', got '%s'", cfg.DatabasePath, loaded.DatabasePath)
	}
	if loaded.AppVersion != "2.1.0" || loaded.BenchmarkRuns != 8 || loaded.Timeout != "30s" {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.Caching {
		t.Error("Caching should round-trip")
	}
	if loaded.Archive.Bucket != "perf" {
		t.Errorf("Archive.Bucket = %q", loaded.Archive.Bucket)
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "database: /file/test.db\napp_version: file-app\nbenchmark_runs: 6\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, configPath)
	t.Setenv(EnvDatabase, "/env/test.db")
	t.Setenv(EnvCaching, "1")
	t.Setenv(EnvDependencyMode, "eager")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabasePath != "/env/test.db" {
		t.Errorf("DatabasePath = %q, env should win", cfg.DatabasePath)
	}
	if cfg.AppVersion != "file-app" {
		t.Errorf("AppVersion = %q, file should win over default", cfg.AppVersion)
	}
	if cfg.BenchmarkRuns != 6 {
		t.Errorf("BenchmarkRuns = %d, want 6", cfg.BenchmarkRuns)
	}
	if !cfg.Caching || cfg.DependencyMode != DependencyEager {
		t.Errorf("Caching/DependencyMode = %v/%q", cfg.Caching, cfg.DependencyMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, default should survive", cfg.LogLevel)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PERFTEST_APP_VERSION=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)
	// godotenv never overrides a variable that is already set, even to ""
	os.Unsetenv(EnvAppVersion)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.AppVersion != "from-dotenv" {
		t.Errorf("AppVersion = %q, want from-dotenv", cfg.AppVersion)
	}
}

func TestLoad_InvalidBenchmarkRuns(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBenchmarkRuns, "four")

	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric benchmark runs")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero runs", func(c *Config) { c.BenchmarkRuns = 0 }, true},
		{"bad timeout", func(c *Config) { c.Timeout = "soon" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = "-1s" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad dependency mode", func(c *Config) { c.DependencyMode = "sometimes" }, true},
		{"archive without bucket", func(c *Config) { c.Archive.Endpoint = "s3.example.com" }, true},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTimeout(t *testing.T) {
	cfg := &Config{}
	if d, err := cfg.GetTimeout(); err != nil || d != 0 {
		t.Errorf("empty timeout = %v, %v", d, err)
	}

	cfg.Timeout = "1m30s"
	d, err := cfg.GetTimeout()
	if err != nil {
		t.Fatalf("GetTimeout failed: %v", err)
	}
	if d != 90*time.Second {
		t.Errorf("GetTimeout() = %v, want 1m30s", d)
	}
}

func TestGetDatabasePath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		name     string
		dbPath   string
		expected string
	}{
		{"absolute path", "/absolute/path/to/db", "/absolute/path/to/db"},
		{"home directory expansion", "~/perf/test.db", filepath.Join(home, "perf/test.db")},
		{"relative path", "perf.db", "perf.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DatabasePath: tt.dbPath}
			if got := cfg.GetDatabasePath(); got != tt.expected {
				t.Errorf("GetDatabasePath() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config/path")
	if path := GetConfigPath(); path != "/custom/config/path" {
		t.Errorf("GetConfigPath() with env = %v, want /custom/config/path", path)
	}

	t.Setenv(EnvConfig, "")
	path := GetConfigPath()
	if !filepath.IsAbs(path) && path != ".perftest-config" {
		t.Errorf("GetConfigPath() should return absolute path or relative fallback, got %v", path)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	if err := DefaultConfig().Save(configPath); err != nil {
		t.Fatalf("Save should create parent directories: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created in nested directory")
	}
}

func TestValidateDatabase_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	cfg := &Config{DatabasePath: dbPath}

	if err := cfg.ValidateDatabase(); err != nil {
		t.Fatalf("ValidateDatabase() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("ValidateDatabase() did not create database directory")
	}

	if err := (&Config{}).ValidateDatabase(); err == nil {
		t.Error("ValidateDatabase() expected error for empty path")
	}
}

func TestEnvironmentApply(t *testing.T) {
	t.Setenv(EnvCaching, "")
	t.Setenv(EnvDependencyMode, "")
	t.Setenv(EnvLogLevel, "")

	cfg := DefaultConfig()
	cfg.Caching = true
	cfg.DependencyMode = DependencyEager
	cfg.LogLevel = "debug"

	if err := cfg.Environment().Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if got := os.Getenv(EnvCaching); got != "true" {
		t.Errorf("%s = %q, want true", EnvCaching, got)
	}
	if got := os.Getenv(EnvDependencyMode); got != "eager" {
		t.Errorf("%s = %q, want eager", EnvDependencyMode, got)
	}
	if got := os.Getenv(EnvLogLevel); got != "debug" {
		t.Errorf("%s = %q, want debug", EnvLogLevel, got)
	}
}
