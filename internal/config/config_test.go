package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes Validate().
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultFitMaxSteps, cfg.Fitting.MaxSteps)
	assert.Equal(t, DefaultFitTolerance, cfg.Fitting.Tolerance)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Fitting.Tolerance = 1e-3
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 1e-3, cfg.Fitting.Tolerance)
}

func TestApplyDefaultsNil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"server port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "verbose" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db name", func(c *Config) { c.Database.DBName = "" }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"missing kafka topic", func(c *Config) { c.Kafka.Topic = "" }},
		{"zero worker concurrency", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"non-positive tolerance", func(c *Config) { c.Fitting.Tolerance = -1 }},
		{"non-positive displacement", func(c *Config) { c.Fitting.Displacement = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forgeff.yaml")
	content := `
server:
  port: 8181
  mode: release
database:
  host: db.internal
  db_name: ffstore
kafka:
  brokers: ["broker-1:9092", "broker-2:9092"]
fitting:
  tolerance: 1.0e-6
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "ffstore", cfg.Database.DBName)
	assert.Len(t, cfg.Kafka.Brokers, 2)
	assert.Equal(t, 1e-6, cfg.Fitting.Tolerance)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset sections fall back to defaults.
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forgeff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: trace\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}
