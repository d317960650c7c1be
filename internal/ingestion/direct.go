package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the full set of db.Queries methods the ingestion engine needs
// across both ingress modes.
type Querier interface {
	QuotaQuerier
	CreateCompletedUpload(ctx context.Context, arg db.CreateCompletedUploadParams) error
	DeleteCompletedUpload(ctx context.Context, resourceID pgtype.UUID) error
	CreateChunkUpload(ctx context.Context, arg db.CreateChunkUploadParams) error
	GetActiveChunkUpload(ctx context.Context, objectName, ownerID pgtype.UUID) (db.ChunkUpload, error)
	IncrementReceivedBytes(ctx context.Context, objectName pgtype.UUID, delta int64) error
	MarkChunkUploadCompleted(ctx context.Context, objectName pgtype.UUID, integrityHash *string) error
	DeleteChunkUpload(ctx context.Context, objectName pgtype.UUID) error
	InsertChunkPart(ctx context.Context, arg db.InsertChunkPartParams) error
	ListChunkParts(ctx context.Context, objectName pgtype.UUID) ([]db.ChunkPart, error)
}

// Broker is the subset of the job-queue broker the engine emits to.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

type Engine struct {
	queries     Querier
	storage     storage.Storage
	broker      Broker
	audit       *audit.Emitter
	uploadQueue string
	statusQueue string
	chunkSize   int64
}

func NewEngine(queries Querier, store storage.Storage, broker Broker, auditEmitter *audit.Emitter, uploadQueue, statusQueue string, chunkSize int64) *Engine {
	return &Engine{
		queries:     queries,
		storage:     store,
		broker:      broker,
		audit:       auditEmitter,
		uploadQueue: uploadQueue,
		statusQueue: statusQueue,
		chunkSize:   chunkSize,
	}
}

// DirectUploadKey is the raw-upload object-store prefix, distinct from the
// resource/{object_name}/... prefix the transcoder writes processed output
// under.
func DirectUploadKey(objectName string) string {
	return "upload/" + objectName
}

// DirectUpload streams body as a single multipart object, up to 4 GiB,
// buffering at least storage.MinPartSize per part. On success it records a
// CompletedUpload and re-checks quota post-commit; an overshoot triggers a
// compensating delete of the just-written object.
func (e *Engine) DirectUpload(ctx context.Context, ownerID uuid.UUID, fileName string, body io.Reader) (objectName string, err error) {
	ownerPG := pgtype.UUID{Bytes: ownerID, Valid: true}
	objectID := uuid.New()
	objectPG := pgtype.UUID{Bytes: objectID, Valid: true}
	key := DirectUploadKey(objectID.String())

	uploadID, err := e.storage.NewMultipartUpload(ctx, key, "application/octet-stream")
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	var parts []storage.Part
	var totalSize int64
	partNumber := 1
	buf := make([]byte, 0, storage.MinPartSize)

	flush := func(final bool) error {
		if len(buf) == 0 || (!final && int64(len(buf)) < storage.MinPartSize) {
			return nil
		}
		etag, err := e.storage.PutObjectPart(ctx, key, uploadID, partNumber, bytes.NewReader(buf), int64(len(buf)))
		if err != nil {
			return err
		}
		parts = append(parts, storage.Part{PartNumber: partNumber, ETag: etag})
		totalSize += int64(len(buf))
		partNumber++
		buf = buf[:0]
		return nil
	}

	readBuf := make([]byte, 64*1024)
	for {
		n, readErr := body.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if int64(len(buf)) >= storage.MinPartSize {
				if err := flush(false); err != nil {
					_ = e.storage.AbortMultipartUpload(ctx, key, uploadID)
					return "", apperror.Wrap(err, apperror.ErrStorageUploadFailed)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = e.storage.AbortMultipartUpload(ctx, key, uploadID)
			return "", apperror.Wrap(readErr, apperror.ErrStorageUploadFailed)
		}
	}
	if err := flush(true); err != nil {
		_ = e.storage.AbortMultipartUpload(ctx, key, uploadID)
		return "", apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	if _, err := e.storage.CompleteMultipartUpload(ctx, key, uploadID, parts); err != nil {
		return "", apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	if err := e.queries.CreateCompletedUpload(ctx, db.CreateCompletedUploadParams{
		OwnerID:    ownerPG,
		ResourceID: objectPG,
		FileSize:   totalSize,
	}); err != nil {
		return "", fmt.Errorf("record completed upload: %w", err)
	}

	if err := checkQuota(ctx, e.queries, ownerPG, 0); err != nil {
		_ = e.queries.DeleteCompletedUpload(ctx, objectPG)
		_ = e.storage.Delete(ctx, key)
		e.audit.EmitDetails(ctx, audit.EventQuotaExceeded, &ownerID, "", &objectID, map[string]any{"file_size": totalSize})
		return "", apperror.ErrQuotaExceeded
	}

	if err := e.emitUploaded(objectID.String(), ownerID.String(), fileName, totalSize, key); err != nil {
		return "", err
	}

	return objectID.String(), nil
}

func (e *Engine) emitUploaded(objectName, ownerID, fileName string, fileSize int64, key string) error {
	presignedURL, err := e.storage.GetPresignedURL(context.Background(), key, 3600)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrStorageDownloadFailed)
	}
	if _, err := e.broker.Enqueue(e.uploadQueue, UploadQueueMessage{
		PresignedURL: presignedURL,
		FileSize:     fileSize,
		ObjectName:   objectName,
	}); err != nil {
		return fmt.Errorf("enqueue upload message: %w", err)
	}
	if _, err := e.broker.Enqueue(e.statusQueue, NewStatusUploadedMessage(objectName, ownerID, fileName)); err != nil {
		return fmt.Errorf("enqueue status message: %w", err)
	}
	return nil
}
