// Package storage wraps the object store used for both raw uploads
// (`upload/{object_name}`) and processed artifacts (`resource/{object_name}/…`).
// Every write path in the pipeline goes through multipart upload, even for
// small objects, so the ingestion, transcode, and cleanup stages share one
// code path for "create, add parts, complete or abort".
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("storage: object not found")
	ErrInvalidKey    = errors.New("storage: invalid key")
	ErrChecksumMismatch = errors.New("storage: integrity checksum mismatch")
)

// Part describes one uploaded multipart segment, as returned by the object
// store after PutObjectPart and consumed (in part-number order) by Complete.
type Part struct {
	PartNumber int
	ETag       string
}

type Storage interface {
	// NewMultipartUpload begins a multipart upload and returns the
	// object-store-issued upload id.
	NewMultipartUpload(ctx context.Context, key, contentType string) (uploadID string, err error)

	// PutObjectPart uploads one part of an in-progress multipart upload and
	// returns its ETag for later inclusion in Complete.
	PutObjectPart(ctx context.Context, key, uploadID string, partNumber int, reader io.Reader, size int64) (etag string, err error)

	// CompleteMultipartUpload finalizes the upload from an ordered part list
	// and returns the finished object's ETag (the checksum compared against
	// a declared integrity hash, per the hex-comparison contract).
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) (etag string, err error)

	// AbortMultipartUpload discards an in-progress upload and any parts
	// already stored against it.
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error

	// Download streams an object's full contents.
	Download(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Delete removes a completed (non-multipart) object, used for
	// compensating deletes and artifact cleanup.
	Delete(ctx context.Context, key string) error

	// GetPresignedURL issues a time-limited GET URL, used both for serving
	// and for handing scan/probe/transcode workers a way to stream the
	// object without object-store credentials.
	GetPresignedURL(ctx context.Context, key string, expiry int) (string, error)

	// ListObjects enumerates keys under a prefix, one level deep, used by
	// the transcoder to walk and upload its HLS output tree.
	ListObjects(ctx context.Context, prefix string) ([]string, error)

	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// MinPartSize is the object-store's minimum multipart part size (5 MiB);
// chunk_size below this floor is rejected at config load.
const MinPartSize = 5 * 1024 * 1024
