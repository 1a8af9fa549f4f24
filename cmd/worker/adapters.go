package main

import (
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/internal/config"
	"github.com/turtacn/forgeff/internal/infrastructure/database/postgres"
	"github.com/turtacn/forgeff/internal/infrastructure/database/redis"
	"github.com/turtacn/forgeff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/internal/infrastructure/storage/minio"
)

// The config package keeps one flat schema for the whole platform; these
// helpers translate its sub-structs into the per-adapter configs.

func postgresConfig(cfg config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxConns:        int32(cfg.MaxConns),
		MinConns:        int32(cfg.MinConns),
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
}

func redisConfig(cfg config.RedisConfig) redis.Config {
	host, port := splitAddr(cfg.Addr, 6379)
	return redis.Config{
		Host:         host,
		Port:         port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
}

func consumerConfig(cfg config.KafkaConfig) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	}
}

func minioConfig(cfg config.MinIOConfig) minio.Config {
	return minio.Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UseSSL:          cfg.UseSSL,
		Bucket:          cfg.Bucket,
	}
}

func logConfig(cfg config.LogConfig) logging.LogConfig {
	return logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
	}
}

func splitAddr(addr string, defaultPort int) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}
