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
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/auth"
	"github.com/Valtis/videosite/internal/config"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/health"
	"github.com/Valtis/videosite/internal/ingestion"
	"github.com/Valtis/videosite/internal/ingestionapi"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/metrics"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
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

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("database connected")

	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		Region:    cfg.S3Region,
	})
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	log.Info("object storage connected")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	b := broker.NewRedisStreamsBroker(redisClient)
	adapter := &brokerAdapter{broker: b}
	log.Info("broker initialized")

	queries := db.New(pool)
	instrumentedStore := metrics.NewInstrumentedStorage(store)
	auditEmitter := audit.NewEmitter(adapter, cfg.AuditEventQueueURL)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	engine := ingestion.NewEngine(queries, instrumentedStore, adapter, auditEmitter, cfg.UploadQueueURL, cfg.ResourceStatusQueueURL, cfg.ChunkSize)
	ingestHandler := ingestionapi.NewHandler(engine, queries)

	metrics.SetAppInfo("1.0.0", cfg.Environment, "ingestion")

	healthChecker := health.NewChecker(pool, redisClient).WithStorage(instrumentedStore)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", health.LivenessHandler())
	mux.HandleFunc("/health", health.ReadinessHandler(healthChecker))

	authed := http.NewServeMux()
	ingestHandler.Register(authed)

	mux.Handle("/upload/", auth.Middleware(verifier)(authed))

	handler := metrics.HTTPMetricsMiddleware(recoverMiddleware(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("forced shutdown: %w", err)
		}
	}

	log.Info("server stopped gracefully")
	return nil
}

// recoverMiddleware converts a panicking handler into a 500 instead of
// taking the whole process down, the same safety net the teacher's web
// package wraps every route with.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				apperror.WriteJSON(w, r, apperror.Wrap(fmt.Errorf("panic: %v", rec), apperror.ErrInternal))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
