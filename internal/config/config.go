// Package config loads every stage binary's environment into one struct,
// the same env-driven pattern the teacher used, extended with the pipeline's
// scan/probe/transcode/quota settings and the named queue identifiers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Valtis/videosite/internal/storage"
)

type Config struct {
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	DatabaseURL string
	RedisURL    string

	S3Bucket         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3UseSSL         bool
	S3Region         string
	UsePathStyle     bool

	UploadQueueURL            string
	VirusScanQueueURL         string
	VideoProcessingQueueURL   string
	AudioProcessingQueueURL   string
	ImageProcessingQueueURL   string
	ResourceStatusQueueURL    string
	AuditEventQueueURL        string
	WebhookQueueURL           string

	DomainURL         string
	ResourceServerURL string

	ChunkSize              int64
	ChunkUploadTTL         time.Duration
	ScanMaxSizeMegabytes   int64
	ClamAVAddress          string
	MediaInfoPath          string
	FFmpegPath             string
	FFprobePath            string

	EnableDataQuotas        bool
	DailyDataQuotaMegabytes int64

	IPSource string

	WorkerConcurrency     int
	JobVisibilityTimeout  time.Duration
	JobTimeout            time.Duration
	MaxRetries            int

	JWTSecret string

	OTELExporterOTLPEndpoint string
	TracingEnabled           bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.S3Bucket = getEnvString("S3_BUCKET_NAME", "videosite")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required")
	}
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	if cfg.S3AccessKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY is required")
	}
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	if cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("S3_SECRET_KEY is required")
	}
	cfg.S3UseSSL = getEnvBool("S3_USE_SSL", false)
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.UsePathStyle = getEnvBool("USE_PATH_STYLE_BUCKETS", true)

	cfg.UploadQueueURL = getEnvString("UPLOAD_QUEUE_URL", "upload-queue")
	cfg.VirusScanQueueURL = getEnvString("VIRUS_SCAN_QUEUE_URL", "scan-queue")
	cfg.VideoProcessingQueueURL = getEnvString("VIDEO_PROCESSING_QUEUE_URL", "video-queue")
	cfg.AudioProcessingQueueURL = getEnvString("AUDIO_PROCESSING_QUEUE_URL", "audio-queue")
	cfg.ImageProcessingQueueURL = getEnvString("IMAGE_PROCESSING_QUEUE_URL", "image-queue")
	cfg.ResourceStatusQueueURL = getEnvString("RESOURCE_STATUS_QUEUE_URL", "status-queue")
	cfg.AuditEventQueueURL = getEnvString("AUDIT_EVENT_QUEUE_URL", "audit-queue")
	cfg.WebhookQueueURL = getEnvString("WEBHOOK_QUEUE_URL", "webhook-queue")

	cfg.DomainURL = getEnvString("DOMAIN_URL", "http://localhost:8080")
	cfg.ResourceServerURL = getEnvString("RESOURCE_SERVER_URL", "http://localhost:8081")

	cfg.ChunkSize = getEnvInt64("CHUNK_SIZE", storage.MinPartSize)
	if cfg.ChunkSize < storage.MinPartSize {
		return nil, fmt.Errorf("CHUNK_SIZE must be at least %d bytes (object-store minimum part size)", storage.MinPartSize)
	}
	cfg.ChunkUploadTTL, err = getEnvDuration("CHUNK_UPLOAD_TTL", "24h")
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_UPLOAD_TTL: %w", err)
	}
	cfg.ScanMaxSizeMegabytes = getEnvInt64("SCAN_MAX_SIZE_MEGABYTES", 100)
	cfg.ClamAVAddress = getEnvString("CLAMAV_ADDRESS", "localhost:3310")
	cfg.MediaInfoPath = getEnvString("MEDIAINFO_PATH", "mediainfo")
	cfg.FFmpegPath = getEnvString("FFMPEG_PATH", "ffmpeg")
	cfg.FFprobePath = getEnvString("FFPROBE_PATH", "ffprobe")

	cfg.EnableDataQuotas = getEnvBool("ENABLE_DATA_QUOTAS", false)
	cfg.DailyDataQuotaMegabytes = getEnvInt64("DAILY_DATA_QUOTA_MEGABYTES", 10240)

	cfg.IPSource = getEnvString("IP_SOURCE", "nginx")

	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", 4)
	cfg.JobVisibilityTimeout, err = getEnvDuration("JOB_VISIBILITY_TIMEOUT", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_VISIBILITY_TIMEOUT: %w", err)
	}
	cfg.JobTimeout, err = getEnvDuration("JOB_TIMEOUT", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
	}
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", 3)

	cfg.JWTSecret = getEnvString("JWT_SECRET", "change-me-in-production")

	cfg.OTELExporterOTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", false)

	return cfg, nil
}

// VideoTranscodeVisibilityTimeout is the 6-hour per-job timeout the
// transcode worker installs in its TimeoutMiddleware, in place of
// JobTimeout, for that one stage.
func VideoTranscodeVisibilityTimeout() time.Duration {
	return 6 * time.Hour
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ChunkSize < storage.MinPartSize {
		return fmt.Errorf("invalid chunk size: %d", c.ChunkSize)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("invalid worker concurrency: %d", c.WorkerConcurrency)
	}
	return nil
}
