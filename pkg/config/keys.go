package config

import (
	"fmt"
	"strconv"
)

// Key describes one settable configuration key
type Key struct {
	Name        string
	Env         string
	Description string
	get         func(*Config) string
	set         func(*Config, string) error
}

func stringKey(name, env, desc string, field func(*Config) *string) Key {
	return Key{
		Name: name, Env: env, Description: desc,
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name, env, desc string, field func(*Config) *bool) Key {
	return Key{
		Name: name, Env: env, Description: desc,
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			switch v {
			case "true", "1":
				*field(c) = true
			case "false", "0":
				*field(c) = false
			default:
				return fmt.Errorf("invalid value for %s (use true/false or 1/0)", name)
			}
			return nil
		},
	}
}

// Keys lists the configuration keys in display order
var Keys = []Key{
	stringKey("database", EnvDatabase, "Path to SQLite database", func(c *Config) *string { return &c.DatabasePath }),
	stringKey("output_dir", EnvOutputDir, "Directory for history files and profile reports", func(c *Config) *string { return &c.OutputDir }),
	stringKey("app_version", EnvAppVersion, "Application version written to history rows", func(c *Config) *string { return &c.AppVersion }),
	stringKey("framework_version", EnvFrameworkVersion, "Framework version written to history rows", func(c *Config) *string { return &c.FrameworkVersion }),
	{
		Name: "benchmark_runs", Env: EnvBenchmarkRuns, Description: "Measured runs per benchmark case",
		get: func(c *Config) string { return strconv.Itoa(c.BenchmarkRuns) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for benchmark_runs: %w", err)
			}
			c.BenchmarkRuns = n
			return nil
		},
	},
	stringKey("timeout", EnvTimeout, "Per-case deadline such as 30s (empty = none)", func(c *Config) *string { return &c.Timeout }),
	stringKey("log_level", EnvLogLevel, "debug, info, warn or error", func(c *Config) *string { return &c.LogLevel }),
	stringKey("log_format", EnvLogFormat, "console or json", func(c *Config) *string { return &c.LogFormat }),
	boolKey("caching", EnvCaching, "Run cases with production-like caching", func(c *Config) *bool { return &c.Caching }),
	stringKey("dependency_mode", EnvDependencyMode, "eager or lazy dependency loading", func(c *Config) *string { return &c.DependencyMode }),
	stringKey("metrics_file", EnvMetricsFile, "Prometheus text file written after each run", func(c *Config) *string { return &c.MetricsFile }),
	stringKey("archive.endpoint", EnvArchiveEndpoint, "S3-compatible endpoint for output uploads", func(c *Config) *string { return &c.Archive.Endpoint }),
	stringKey("archive.bucket", EnvArchiveBucket, "Bucket for output uploads", func(c *Config) *string { return &c.Archive.Bucket }),
	stringKey("archive.prefix", EnvArchivePrefix, "Object key prefix for output uploads", func(c *Config) *string { return &c.Archive.Prefix }),
	stringKey("archive.access_key", EnvArchiveAccessKey, "Access key for the archive bucket", func(c *Config) *string { return &c.Archive.AccessKey }),
	stringKey("archive.secret_key", EnvArchiveSecretKey, "Secret key for the archive bucket", func(c *Config) *string { return &c.Archive.SecretKey }),
	boolKey("archive.insecure", EnvArchiveInsecure, "Use plain HTTP for the archive endpoint", func(c *Config) *bool { return &c.Archive.Insecure }),
}

// LookupKey finds a key by name
func LookupKey(name string) (Key, bool) {
	for _, k := range Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// Get returns the value of a key as text
func (cfg *Config) Get(name string) (string, error) {
	k, ok := LookupKey(name)
	if !ok {
		return "", fmt.Errorf("unknown config key '%s'", name)
	}
	return k.get(cfg), nil
}

// Set parses and stores the value of a key
func (cfg *Config) Set(name, value string) error {
	k, ok := LookupKey(name)
	if !ok {
		return fmt.Errorf("unknown config key '%s'", name)
	}
	return k.set(cfg, value)
}
