// Package config defines all configuration structures for ForgeFF.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP API server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the fit-run store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection parameters for the label cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the fit-job queue parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	Topic           string   `mapstructure:"topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
}

// MinIOConfig holds object-storage parameters for dataset blobs.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// WorkerConfig holds fit-worker execution parameters.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	MetricsPort       int           `mapstructure:"metrics_port"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// FittingConfig holds numerical defaults for the parameter fit. Per-run
// strategy and tier settings override these.
type FittingConfig struct {
	// StepLimit bounds line-search iterations in the final tier; 0 means
	// iterate to convergence within MaxSteps.
	StepLimit int `mapstructure:"step_limit"`
	// MaxSteps is the hard iteration ceiling for a convergence-driven fit.
	MaxSteps int `mapstructure:"max_steps"`
	// Tolerance is the relative objective-improvement threshold below which
	// the fit is considered converged.
	Tolerance float64 `mapstructure:"tolerance"`
	// Displacement is the relative finite-difference step used for numeric
	// derivatives with respect to parameters.
	Displacement float64 `mapstructure:"displacement"`
	// GeomMaxSteps bounds the steepest-descent geometry relaxation.
	GeomMaxSteps int `mapstructure:"geom_max_steps"`
	// GeomTolerance is the RMS-force threshold for geometry convergence.
	GeomTolerance float64 `mapstructure:"geom_tolerance"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// Config is the root configuration structure. Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Fitting  FittingConfig  `mapstructure:"fitting"`
	Log      LogConfig      `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("config: kafka.topic is required")
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	if c.Fitting.Tolerance <= 0 {
		return fmt.Errorf("config: fitting.tolerance must be > 0, got %g", c.Fitting.Tolerance)
	}
	if c.Fitting.Displacement <= 0 {
		return fmt.Errorf("config: fitting.displacement must be > 0, got %g", c.Fitting.Displacement)
	}
	if c.Fitting.MaxSteps < 1 {
		return fmt.Errorf("config: fitting.max_steps must be >= 1, got %d", c.Fitting.MaxSteps)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
