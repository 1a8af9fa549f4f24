// apiserver runs the fit HTTP API: it accepts fit requests, queues them for
// the workers and serves run status and molecule labelings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/config"
	"github.com/turtacn/forgeff/internal/infrastructure/database/postgres"
	"github.com/turtacn/forgeff/internal/infrastructure/database/redis"
	"github.com/turtacn/forgeff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/forgeff/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/forgeff/internal/interfaces/http"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintln(os.Stderr, "apiserver:", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	log, err := logging.NewLogger(logConfig(cfg.Log))
	if err != nil {
		return err
	}
	logging.SetDefault(log)
	log.Info("starting apiserver", logging.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgresConfig(cfg.Database), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewFitRunRepository(pool, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(producerConfig(cfg.Kafka), log)
	if err != nil {
		return err
	}
	defer producer.Close()

	store, err := minio.NewDocumentStore(ctx, minioConfig(cfg.MinIO), log)
	if err != nil {
		return err
	}

	var cache fitjob.LabelCache
	if redisClient, err := redis.NewClient(ctx, redisConfig(cfg.Redis), log); err != nil {
		log.Warn("redis unavailable, label cache disabled", logging.Err(err))
	} else {
		defer redisClient.Close()
		cache = redis.NewLabelCache(redisClient, cfg.Redis.DefaultTTL, log)
	}

	metrics := prometheus.New()
	svc := fitjob.NewService(repo, producer, store, cache, metrics, log)

	router := httpserver.NewRouter(httpserver.RouterOptions{
		Service: svc,
		Metrics: metrics,
		Logger:  log,
		Version: version,
		Ready:   func() bool { return pool.Ping(context.Background()) == nil },
	})
	srv := httpserver.NewServer(cfg.Server.Port, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		return srv.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
