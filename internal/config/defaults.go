// Package config provides configuration loading, defaults, and validation
// for ForgeFF.
package config

import "time"

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "forgeff"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "forgeff:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "forgeff-workers"
	DefaultKafkaTopic   = "fit.run.execute"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "forgeff-datasets"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 2
	DefaultWorkerMetricsPort = 9090

	DefaultFitMaxSteps      = 200
	DefaultFitTolerance     = 1e-8
	DefaultFitDisplacement  = 1e-4
	DefaultGeomMaxSteps     = 500
	DefaultGeomTolerance    = 1e-6
	DefaultWorkerJobTimeout = 30 * time.Minute
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default. Fields that have already been set by the caller are left unchanged
// so that explicit configuration always wins. Must be called after
// unmarshalling and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = DefaultWorkerJobTimeout
	}
	if cfg.Worker.MetricsPort == 0 {
		cfg.Worker.MetricsPort = DefaultWorkerMetricsPort
	}

	if cfg.Fitting.MaxSteps == 0 {
		cfg.Fitting.MaxSteps = DefaultFitMaxSteps
	}
	if cfg.Fitting.Tolerance == 0 {
		cfg.Fitting.Tolerance = DefaultFitTolerance
	}
	if cfg.Fitting.Displacement == 0 {
		cfg.Fitting.Displacement = DefaultFitDisplacement
	}
	if cfg.Fitting.GeomMaxSteps == 0 {
		cfg.Fitting.GeomMaxSteps = DefaultGeomMaxSteps
	}
	if cfg.Fitting.GeomTolerance == 0 {
		cfg.Fitting.GeomTolerance = DefaultGeomTolerance
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
