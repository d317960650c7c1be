package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// InitChunkUpload allocates a new object_name, opens a multipart upload
// against the store, and persists the ChunkUpload bookkeeping row. It
// pre-checks quota against the declared file size before doing any of that
// work, since nothing has been written yet at this point.
func (e *Engine) InitChunkUpload(ctx context.Context, ownerID uuid.UUID, fileName string, declaredSize int64, integrityAlgorithm string) (objectName string, chunkSize int64, err error) {
	ownerPG := pgtype.UUID{Bytes: ownerID, Valid: true}

	if err := checkQuota(ctx, e.queries, ownerPG, declaredSize); err != nil {
		return "", 0, err
	}

	objectID := uuid.New()
	objectPG := pgtype.UUID{Bytes: objectID, Valid: true}
	key := DirectUploadKey(objectID.String())

	uploadID, err := e.storage.NewMultipartUpload(ctx, key, "application/octet-stream")
	if err != nil {
		return "", 0, apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	if err := e.queries.CreateChunkUpload(ctx, db.CreateChunkUploadParams{
		ObjectName:         objectPG,
		ExternalUploadID:   uploadID,
		OwnerID:            ownerPG,
		FileName:           fileName,
		ChunkSize:          e.chunkSize,
		IntegrityAlgorithm: integrityAlgorithm,
	}); err != nil {
		_ = e.storage.AbortMultipartUpload(ctx, key, uploadID)
		return "", 0, fmt.Errorf("record chunk upload: %w", err)
	}

	return objectID.String(), e.chunkSize, nil
}

// UploadChunk uploads one part of an in-progress chunked upload. chunkIndex
// is 1-based and doubles as the object-store part number. On quota overshoot
// the whole upload is aborted and its rows deleted, mirroring the
// compensating-delete contract of a failed complete.
func (e *Engine) UploadChunk(ctx context.Context, ownerID uuid.UUID, objectName string, chunkIndex int32, data []byte) error {
	ownerPG := pgtype.UUID{Bytes: ownerID, Valid: true}
	objectPG, err := db.ParseUUID(objectName)
	if err != nil {
		return apperror.WithRetryable(apperror.ErrInputInvalid, false)
	}

	upload, err := e.queries.GetActiveChunkUpload(ctx, objectPG, ownerPG)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrNotFound)
	}
	if int64(len(data)) == 0 || int64(len(data)) > upload.ChunkSize {
		return apperror.ErrInputInvalid
	}

	if err := checkQuota(ctx, e.queries, ownerPG, int64(len(data))); err != nil {
		if abortErr := e.abortChunkUpload(ctx, objectPG, upload.ExternalUploadID, ownerID, objectName); abortErr != nil {
			return fmt.Errorf("%w (abort also failed: %v)", err, abortErr)
		}
		return err
	}

	key := DirectUploadKey(objectName)
	etag, err := e.storage.PutObjectPart(ctx, key, upload.ExternalUploadID, int(chunkIndex), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	if err := e.queries.InsertChunkPart(ctx, db.InsertChunkPartParams{
		ObjectName: objectPG,
		PartNumber: chunkIndex,
		ETag:       etag,
		OwnerID:    ownerPG,
	}); err != nil {
		return fmt.Errorf("record chunk part: %w", err)
	}

	if err := e.queries.IncrementReceivedBytes(ctx, objectPG, int64(len(data))); err != nil {
		return fmt.Errorf("increment received bytes: %w", err)
	}

	return nil
}

// CompleteChunkUpload finalizes a chunked upload once the caller has
// uploaded all chunks. declaredIntegrityHash, if present and the upload's
// integrity_algorithm is crc32, is compared against the store's returned
// checksum as an opaque hex string (see storage.stripETagQuotes).
func (e *Engine) CompleteChunkUpload(ctx context.Context, ownerID uuid.UUID, objectName, fileName string, declaredIntegrityHash *string) error {
	ownerPG := pgtype.UUID{Bytes: ownerID, Valid: true}
	objectPG, err := db.ParseUUID(objectName)
	if err != nil {
		return apperror.WithRetryable(apperror.ErrInputInvalid, false)
	}

	upload, err := e.queries.GetActiveChunkUpload(ctx, objectPG, ownerPG)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrNotFound)
	}

	chunkParts, err := e.queries.ListChunkParts(ctx, objectPG)
	if err != nil {
		return fmt.Errorf("list chunk parts: %w", err)
	}
	if len(chunkParts) == 0 {
		return apperror.ErrInputInvalid
	}
	sort.Slice(chunkParts, func(i, j int) bool { return chunkParts[i].PartNumber < chunkParts[j].PartNumber })
	for i, p := range chunkParts {
		if p.PartNumber != int32(i+1) {
			return apperror.WithRetryable(apperror.ErrInputInvalid, false)
		}
	}

	if err := checkQuota(ctx, e.queries, ownerPG, 0); err != nil {
		if abortErr := e.abortChunkUpload(ctx, objectPG, upload.ExternalUploadID, ownerID, objectName); abortErr != nil {
			return fmt.Errorf("%w (abort also failed: %v)", err, abortErr)
		}
		return err
	}

	key := DirectUploadKey(objectName)
	parts := make([]storage.Part, len(chunkParts))
	for i, p := range chunkParts {
		parts[i] = storage.Part{PartNumber: int(p.PartNumber), ETag: p.ETag}
	}
	finalETag, err := e.storage.CompleteMultipartUpload(ctx, key, upload.ExternalUploadID, parts)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrStorageUploadFailed)
	}

	if upload.IntegrityAlgorithm == "crc32" && declaredIntegrityHash != nil && *declaredIntegrityHash != "" {
		if finalETag != *declaredIntegrityHash {
			return apperror.WithRetryable(apperror.ErrInputInvalid, false)
		}
	}

	if err := e.queries.CreateCompletedUpload(ctx, db.CreateCompletedUploadParams{
		OwnerID:    ownerPG,
		ResourceID: objectPG,
		FileSize:   upload.ReceivedBytes,
	}); err != nil {
		return fmt.Errorf("record completed upload: %w", err)
	}

	if err := e.queries.MarkChunkUploadCompleted(ctx, objectPG, declaredIntegrityHash); err != nil {
		return fmt.Errorf("mark chunk upload completed: %w", err)
	}

	name := fileName
	if name == "" {
		name = upload.FileName
	}
	return e.emitUploaded(objectName, ownerID.String(), name, upload.ReceivedBytes, key)
}

func (e *Engine) abortChunkUpload(ctx context.Context, objectPG pgtype.UUID, externalUploadID string, ownerID uuid.UUID, objectName string) error {
	key := DirectUploadKey(objectName)
	if err := e.storage.AbortMultipartUpload(ctx, key, externalUploadID); err != nil {
		return err
	}
	if err := e.queries.DeleteChunkUpload(ctx, objectPG); err != nil {
		return err
	}
	objectID, _ := uuid.Parse(objectName)
	e.audit.EmitDetails(ctx, audit.EventQuotaExceeded, &ownerID, "", &objectID, nil)
	return nil
}
