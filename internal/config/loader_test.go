package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
dump:
  path: /data/legacy.sql
  progress_interval_lines: 500

legacy:
  table_prefix: shop_
  preferred_locale: 2
  reserved_category_names: [Root, Home]
  columns:
    product_lang:
      id: 0
      locale: 2
      name: 7

target:
  host: target-host
  port: 3307
  user: syncuser
  password: syncpass
  database: storefront
  tls: disable

matching:
  contains_fallback: false

processing:
  batch_size: 250
  concurrency: 4
  sleep_seconds: 0.5

codes:
  kind: alphanumeric
  column: sku
  length: 8

logging:
  level: debug
  format: text
  output: stdout
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/data/legacy.sql", cfg.Dump.Path)
	assert.Equal(t, 500, cfg.Dump.ProgressIntervalLines)
	assert.Equal(t, "shop_", cfg.Legacy.TablePrefix)
	assert.Equal(t, int64(2), cfg.Legacy.PreferredLocale)
	assert.Equal(t, []string{"Root", "Home"}, cfg.Legacy.ReservedCategoryNames)
	assert.Equal(t, 7, cfg.Legacy.Columns.ProductLang.Name)
	assert.Equal(t, 3, cfg.Legacy.Columns.CategoryLang.Name, "unset columns keep their defaults")

	assert.Equal(t, "target-host", cfg.Target.Host)
	assert.Equal(t, 3307, cfg.Target.Port)
	assert.Equal(t, "disable", cfg.Target.TLS)

	assert.False(t, cfg.Matching.ContainsFallback)
	assert.Equal(t, 250, cfg.Processing.BatchSize)
	assert.Equal(t, 4, cfg.Processing.Concurrency)
	assert.Equal(t, 0.5, cfg.Processing.SleepSeconds)

	assert.Equal(t, "alphanumeric", cfg.Codes.Kind)
	assert.Equal(t, "sku", cfg.Codes.Column)
	assert.Equal(t, 5, cfg.Codes.MaxAttempts)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadWithEnvVars(t *testing.T) {
	t.Setenv("TEST_TARGET_HOST", "env-host")
	t.Setenv("TEST_TARGET_PASSWORD", "env-secret")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
target:
  host: ${TEST_TARGET_HOST}
  user: root
  password: $TEST_TARGET_PASSWORD
  database: storefront
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Target.Host)
	assert.Equal(t, "env-secret", cfg.Target.Password)
}

func TestLoadWithDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"),
		[]byte("CATALOGSYNC_TEST_DUMP=/from/dotenv.sql\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CATALOGSYNC_TEST_DUMP") })

	require.NoError(t, os.WriteFile(configPath, []byte("dump:\n  path: ${CATALOGSYNC_TEST_DUMP}\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv.sql", cfg.Dump.Path)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	t.Setenv("CATALOGSYNC_TEST_BUCKET", "from-shell")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".env"),
		[]byte("CATALOGSYNC_TEST_BUCKET=from-dotenv\n"), 0644))
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  bucket: ${CATALOGSYNC_TEST_BUCKET}\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-shell", cfg.Storage.Bucket)
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "test_value"},
		{"$TEST_VAR", "test_value"},
		{"prefix_${TEST_VAR}_suffix", "prefix_test_value_suffix"},
		{"${NONEXISTENT_VAR}", "${NONEXISTENT_VAR}"},
		{"no_vars_here", "no_vars_here"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVar(tt.input))
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.Set("processing.batch_size", 42)
	v.Set("snapshot.backend", "s3")

	cfg, err := LoadFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Processing.BatchSize)
	assert.Equal(t, "s3", cfg.Snapshot.Backend)
	assert.Equal(t, 8, cfg.Processing.Concurrency)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides(Overrides{
		LogLevel:     "debug",
		LogFormat:    "text",
		BatchSize:    100,
		Concurrency:  2,
		SleepSeconds: 1.5,
		DumpPath:     "/tmp/dump.sql",
		SnapshotPath: "/tmp/graph.json",
	})

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 100, cfg.Processing.BatchSize)
	assert.Equal(t, 2, cfg.Processing.Concurrency)
	assert.Equal(t, 1.5, cfg.Processing.SleepSeconds)
	assert.Equal(t, "/tmp/dump.sql", cfg.Dump.Path)
	assert.Equal(t, "/tmp/graph.json", cfg.Snapshot.Path)
}

func TestApplyOverridesZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	before := *cfg

	cfg.ApplyOverrides(Overrides{})

	assert.Equal(t, before.Logging, cfg.Logging)
	assert.Equal(t, before.Processing, cfg.Processing)
	assert.Equal(t, before.Dump, cfg.Dump)
	assert.Equal(t, before.Snapshot, cfg.Snapshot)
}
