package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Valtis/videosite/internal/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Storage = (*MinIOStorage)(nil)

// MinIOStorage talks to an S3-compatible store via minio.Core, which exposes
// the multipart primitives (NewMultipartUpload/PutObjectPart/Complete/Abort)
// that the teacher's whole-object MinIOStorage never needed.
type MinIOStorage struct {
	core   *minio.Core
	bucket string
	config *Config
}

func NewMinIOStorage(cfg *Config) (*MinIOStorage, error) {
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio core client: %w", err)
	}

	return &MinIOStorage{core: core, bucket: cfg.Bucket, config: cfg}, nil
}

func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	log := logger.FromContext(ctx)

	exists, err := s.core.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("creating bucket", "bucket", s.bucket, "region", s.config.Region)
		if err := s.core.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.config.Region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("bucket created", "bucket", s.bucket)
	}
	return nil
}

func (s *MinIOStorage) NewMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	log := logger.FromContext(ctx)
	uploadID, err := s.core.NewMultipartUpload(ctx, s.bucket, key, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		log.Error("new multipart upload failed", "key", key, "error", err)
		return "", fmt.Errorf("new multipart upload %s: %w", key, err)
	}
	log.Debug("multipart upload created", "key", key, "upload_id", uploadID)
	return uploadID, nil
}

func (s *MinIOStorage) PutObjectPart(ctx context.Context, key, uploadID string, partNumber int, reader io.Reader, size int64) (string, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	part, err := s.core.PutObjectPart(ctx, s.bucket, key, uploadID, partNumber, reader, size, minio.PutObjectPartOptions{})
	if err != nil {
		log.Error("put object part failed", "key", key, "part_number", partNumber, "error", err)
		return "", fmt.Errorf("put object part %s#%d: %w", key, partNumber, err)
	}

	log.Debug("object part uploaded", "key", key, "part_number", partNumber, "size", size, "duration_ms", time.Since(start).Milliseconds())
	return stripETagQuotes(part.ETag), nil
}

func (s *MinIOStorage) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) (string, error) {
	log := logger.FromContext(ctx)

	completeParts := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completeParts[i] = minio.CompletePart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	info, err := s.core.CompleteMultipartUpload(ctx, s.bucket, key, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		log.Error("complete multipart upload failed", "key", key, "error", err)
		return "", fmt.Errorf("complete multipart upload %s: %w", key, err)
	}

	log.Info("multipart upload completed", "key", key, "size", info.Size)
	return stripETagQuotes(info.ETag), nil
}

func (s *MinIOStorage) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	log := logger.FromContext(ctx)
	if err := s.core.AbortMultipartUpload(ctx, s.bucket, key, uploadID); err != nil {
		log.Warn("abort multipart upload failed", "key", key, "error", err)
		return fmt.Errorf("abort multipart upload %s: %w", key, err)
	}
	log.Info("multipart upload aborted", "key", key)
	return nil
}

func (s *MinIOStorage) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	log := logger.FromContext(ctx)

	obj, _, _, err := s.core.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFoundError(err) {
			return nil, 0, ErrNotFound
		}
		log.Error("storage download failed", "key", key, "error", err)
		return nil, 0, fmt.Errorf("download %s: %w", key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNotFoundError(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("stat %s: %w", key, err)
	}

	return obj, info.Size, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	log := logger.FromContext(ctx)
	if err := s.core.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Error("storage delete failed", "key", key, "error", err)
		return fmt.Errorf("delete %s: %w", key, err)
	}
	log.Debug("storage object deleted", "key", key)
	return nil
}

func (s *MinIOStorage) GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error) {
	log := logger.FromContext(ctx)
	url, err := s.core.Client.PresignedGetObject(ctx, s.bucket, key, time.Duration(expirySeconds)*time.Second, nil)
	if err != nil {
		log.Error("storage presign failed", "key", key, "error", err)
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url.String(), nil
}

func (s *MinIOStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.core.Client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *MinIOStorage) HealthCheck(ctx context.Context) error {
	_, err := s.core.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage health check: %w", err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey"
}

// stripETagQuotes removes the surrounding double quotes S3-compatible
// stores wrap ETags in, pinning the integrity-hash comparison to opaque hex.
func stripETagQuotes(etag string) string {
	return strings.Trim(etag, `"`)
}
