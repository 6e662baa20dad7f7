package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// A .env file next to the config file is loaded first so that ${VAR}
// references can be satisfied without exporting credentials in the shell.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// loadDotEnv loads variables from path without overriding the process environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Dump.Path = expandEnvVar(cfg.Dump.Path)
	cfg.Snapshot.Path = expandEnvVar(cfg.Snapshot.Path)
	cfg.Snapshot.Object = expandEnvVar(cfg.Snapshot.Object)

	cfg.Storage.Endpoint = expandEnvVar(cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = expandEnvVar(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnvVar(cfg.Storage.SecretKey)
	cfg.Storage.Bucket = expandEnvVar(cfg.Storage.Bucket)

	cfg.Target.Host = expandEnvVar(cfg.Target.Host)
	cfg.Target.User = expandEnvVar(cfg.Target.User)
	cfg.Target.Password = expandEnvVar(cfg.Target.Password)
	cfg.Target.Database = expandEnvVar(cfg.Target.Database)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.BatchSize > 0 {
		c.Processing.BatchSize = o.BatchSize
	}
	if o.Concurrency > 0 {
		c.Processing.Concurrency = o.Concurrency
	}
	if o.SleepSeconds > 0 {
		c.Processing.SleepSeconds = o.SleepSeconds
	}
	if o.DumpPath != "" {
		c.Dump.Path = o.DumpPath
	}
	if o.SnapshotPath != "" {
		c.Snapshot.Path = o.SnapshotPath
	}
}

// Overrides carries command-line values that take precedence over the file.
type Overrides struct {
	LogLevel     string
	LogFormat    string
	BatchSize    int
	Concurrency  int
	SleepSeconds float64
	DumpPath     string
	SnapshotPath string
}
