package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Valtis/videosite/internal/cleanup"
	"github.com/Valtis/videosite/internal/config"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cleanup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()

	log.Info("starting chunk upload cleanup job", "ttl", cfg.ChunkUploadTTL)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	log.Info("connecting to database")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("database connected")

	log.Info("connecting to object storage")
	storageCfg := &storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		Region:    cfg.S3Region,
	}
	store, err := storage.NewMinIOStorage(storageCfg)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	log.Info("object storage connected")

	queries := db.New(pool)

	stats, err := cleanup.Run(logger.WithLogger(ctx, log), queries, store, cfg.ChunkUploadTTL)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	log.Info("cleanup completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"reaped", stats.Reaped,
		"errors", stats.Errors,
	)

	return nil
}
