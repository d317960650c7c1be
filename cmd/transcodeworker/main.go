package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/config"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/metrics"
	"github.com/Valtis/videosite/internal/probe"
	"github.com/Valtis/videosite/internal/stageworker"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/Valtis/videosite/internal/transcode"
	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/job-queue/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// brokerAdapter bridges job-queue's broker, keyed by job, to the
// Enqueue(queue, payload) shape every domain package depends on.
type brokerAdapter struct {
	broker *broker.RedisStreamsBroker
}

func (a *brokerAdapter) Enqueue(jobType string, payload any) (string, error) {
	j, err := job.New(jobType, payload)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if err := a.broker.Enqueue(context.Background(), j); err != nil {
		return "", err
	}
	return j.ID, nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()
	log.Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zerologger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	log.Info("redis connected")

	b := broker.NewRedisStreamsBroker(redisClient,
		broker.WithWorkerID(fmt.Sprintf("transcodeworker-%d", os.Getpid())),
	)
	adapter := &brokerAdapter{broker: b}
	log.Info("broker initialized")

	metrics.SetAppInfo("1.0.0", cfg.Environment, "transcodeworker")
	metrics.SetWorkerPoolSize(cfg.WorkerConcurrency)

	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		Region:    cfg.S3Region,
	})
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}

	// Transcodes can legitimately run for a long time; the HTTP client used
	// for the scratch-file download is bounded by the job's own context
	// rather than a fixed client timeout.
	httpClient := &http.Client{}
	engine := transcode.NewEngine(cfg.FFmpegPath, cfg.FFprobePath, httpClient, store, adapter, cfg.ResourceStatusQueueURL)

	registry := worker.NewRegistry()
	_ = registry.Register(cfg.VideoProcessingQueueURL, transcodeHandler(engine))

	registry.Use(
		middleware.RecoveryMiddleware(zerologger),
		middleware.LoggingMiddleware(zerologger),
		// Video transcodes run far longer than the pipeline's default job
		// timeout, so this stage overrides it with the 6-hour window the
		// original service gave itself for SQS message visibility.
		middleware.TimeoutMiddleware(config.VideoTranscodeVisibilityTimeout()),
	)

	log.Info("creating worker pool", "concurrency", cfg.WorkerConcurrency)
	workerPool := worker.NewPool(b, registry,
		worker.WithConcurrency(cfg.WorkerConcurrency),
		worker.WithPoolQueues([]string{cfg.VideoProcessingQueueURL}),
		worker.WithPoolPollInterval(time.Second),
		worker.WithShutdownTimeout(30*time.Second),
		worker.WithPoolLogger(zerologger),
	)

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9090"
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{Addr: ":" + metricsPort, Handler: metricsMux}

	go func() {
		log.Info("metrics server starting", "port", metricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	poolErr := make(chan error, 1)
	go func() {
		log.Info("starting worker pool")
		poolErr <- workerPool.Start(ctx)
	}()

	select {
	case err := <-poolErr:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("worker pool error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := workerPool.Stop(shutdownCtx); err != nil {
			log.Error("error stopping pool", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error stopping metrics server", "error", err)
		}
		cancel()
	}

	log.Info("worker pool stopped gracefully")
	return nil
}

// transcodeHandler adapts transcode.Engine.Transcode to the job-queue
// handler signature.
func transcodeHandler(engine *transcode.Engine) func(context.Context, *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		return stageworker.Run(ctx, "transcode", "video", func(ctx context.Context) error {
			var payload probe.VideoProcessingMessage
			if err := j.UnmarshalPayload(&payload); err != nil {
				return apperror.Wrap(err, apperror.ErrMessageMalformed)
			}
			return engine.Transcode(ctx, payload)
		})
	}
}
