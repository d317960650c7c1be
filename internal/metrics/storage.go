package metrics

import (
	"context"
	"io"
	"time"

	"github.com/Valtis/videosite/internal/storage"
)

// InstrumentedStorage wraps any storage.Storage with Prometheus counters and
// histograms, the same decorator shape the teacher used for whole-object
// Upload/Download/Delete, extended to the multipart call set.
type InstrumentedStorage struct {
	storage.Storage
}

func NewInstrumentedStorage(s storage.Storage) *InstrumentedStorage {
	return &InstrumentedStorage{Storage: s}
}

func (s *InstrumentedStorage) record(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStorage) NewMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	start := time.Now()
	id, err := s.Storage.NewMultipartUpload(ctx, key, contentType)
	s.record("new_multipart_upload", start, err)
	return id, err
}

func (s *InstrumentedStorage) PutObjectPart(ctx context.Context, key, uploadID string, partNumber int, reader io.Reader, size int64) (string, error) {
	start := time.Now()
	etag, err := s.Storage.PutObjectPart(ctx, key, uploadID, partNumber, reader, size)
	s.record("put_object_part", start, err)
	if err == nil {
		StorageBytesTotal.WithLabelValues("upload").Add(float64(size))
	}
	return etag, err
}

func (s *InstrumentedStorage) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []storage.Part) (string, error) {
	start := time.Now()
	etag, err := s.Storage.CompleteMultipartUpload(ctx, key, uploadID, parts)
	s.record("complete_multipart_upload", start, err)
	return etag, err
}

func (s *InstrumentedStorage) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	start := time.Now()
	err := s.Storage.AbortMultipartUpload(ctx, key, uploadID)
	s.record("abort_multipart_upload", start, err)
	return err
}

func (s *InstrumentedStorage) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	start := time.Now()
	reader, size, err := s.Storage.Download(ctx, key)
	s.record("download", start, err)
	if err != nil {
		return nil, 0, err
	}
	return &instrumentedReadCloser{ReadCloser: reader}, size, nil
}

func (s *InstrumentedStorage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.Storage.Delete(ctx, key)
	s.record("delete", start, err)
	return err
}

type instrumentedReadCloser struct {
	io.ReadCloser
	bytesRead int64
}

func (r *instrumentedReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

func (r *instrumentedReadCloser) Close() error {
	StorageBytesTotal.WithLabelValues("download").Add(float64(r.bytesRead))
	return r.ReadCloser.Close()
}
