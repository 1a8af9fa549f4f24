// worker consumes queued fit runs from Kafka and executes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/config"
	"github.com/turtacn/forgeff/internal/infrastructure/database/postgres"
	"github.com/turtacn/forgeff/internal/infrastructure/database/redis"
	"github.com/turtacn/forgeff/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/forgeff/internal/infrastructure/storage/minio"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	workers := flag.Int("workers", 0, "consumer concurrency (overrides config)")
	flag.Parse()

	if err := run(*configPath, *workers); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run(configPath string, workerOverride int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if workerOverride > 0 {
		cfg.Worker.Concurrency = workerOverride
	}

	log, err := logging.NewLogger(logConfig(cfg.Log))
	if err != nil {
		return err
	}
	logging.SetDefault(log)
	log.Info("starting worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency))

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

	// The worker executes runs itself, so the service gets no queue.
	svc := fitjob.NewService(repo, nil, store, cache, metrics, log)

	go serveMetrics(cfg.Worker.MetricsPort, metrics, log)

	handler := runHandler(svc, metrics, cfg.Worker.JobTimeout, log)

	var wg sync.WaitGroup
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(consumerConfig(cfg.Kafka), log)
		if err != nil {
			return err
		}
		consumers = append(consumers, consumer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx, handler); err != nil && ctx.Err() == nil {
				log.Error("consumer stopped", logging.Err(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received, draining consumers")
	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			log.Warn("close consumer", logging.Err(err))
		}
	}
	wg.Wait()
	return nil
}

func runHandler(svc fitjob.Service, metrics *prometheus.Metrics, jobTimeout time.Duration, log logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg kafka.RunMessage) error {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		metrics.RunsInFlight.Inc()
		start := time.Now()
		run, err := svc.Execute(runCtx, msg.RunID)
		metrics.RunsInFlight.Dec()

		status := "failed"
		sweeps := 0
		if run != nil {
			sweeps = run.Sweeps
		}
		if err == nil && run != nil {
			status = string(run.Status)
		}
		metrics.ObserveRun(status, time.Since(start), sweeps)

		if err != nil {
			// Failed runs are recorded in the store; committing here keeps a
			// poisonous run from looping forever.
			log.Error("execute run", logging.String("run_id", msg.RunID), logging.Err(err))
		}
		return nil
	}
}

func serveMetrics(port int, metrics *prometheus.Metrics, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	addr := fmt.Sprintf(":%d", port)
	log.Info("metrics endpoint listening", logging.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics endpoint failed", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
