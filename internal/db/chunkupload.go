package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateChunkUploadParams struct {
	ObjectName         pgtype.UUID
	ExternalUploadID   string
	OwnerID            pgtype.UUID
	FileName           string
	ChunkSize          int64
	IntegrityAlgorithm string
}

func (q *Queries) CreateChunkUpload(ctx context.Context, arg CreateChunkUploadParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO chunk_upload (object_name, external_upload_id, owner_id, file_name, chunk_size, integrity_algorithm)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, arg.ObjectName, arg.ExternalUploadID, arg.OwnerID, arg.FileName, arg.ChunkSize, arg.IntegrityAlgorithm)
	if err != nil {
		return fmt.Errorf("create chunk upload: %w", err)
	}
	return nil
}

func scanChunkUpload(row pgx.Row) (ChunkUpload, error) {
	var c ChunkUpload
	err := row.Scan(&c.ObjectName, &c.ExternalUploadID, &c.OwnerID, &c.FileName, &c.ChunkSize,
		&c.ReceivedBytes, &c.IntegrityAlgorithm, &c.IntegrityHash, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt)
	return c, err
}

// GetActiveChunkUpload looks up an in-progress upload scoped to its owner.
func (q *Queries) GetActiveChunkUpload(ctx context.Context, objectName, ownerID pgtype.UUID) (ChunkUpload, error) {
	row := q.db.QueryRow(ctx, `
		SELECT object_name, external_upload_id, owner_id, file_name, chunk_size, received_bytes,
		       integrity_algorithm, integrity_hash, created_at, updated_at, completed_at
		FROM chunk_upload
		WHERE object_name = $1 AND owner_id = $2 AND completed_at IS NULL
	`, objectName, ownerID)
	c, err := scanChunkUpload(row)
	if err != nil {
		return ChunkUpload{}, fmt.Errorf("get active chunk upload: %w", err)
	}
	return c, nil
}

func (q *Queries) IncrementReceivedBytes(ctx context.Context, objectName pgtype.UUID, delta int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE chunk_upload SET received_bytes = received_bytes + $2, updated_at = now()
		WHERE object_name = $1
	`, objectName, delta)
	if err != nil {
		return fmt.Errorf("increment received bytes: %w", err)
	}
	return nil
}

func (q *Queries) MarkChunkUploadCompleted(ctx context.Context, objectName pgtype.UUID, integrityHash *string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE chunk_upload SET completed_at = now(), updated_at = now(), integrity_hash = COALESCE($2, integrity_hash)
		WHERE object_name = $1
	`, objectName, integrityHash)
	if err != nil {
		return fmt.Errorf("mark chunk upload completed: %w", err)
	}
	return nil
}

func (q *Queries) DeleteChunkUpload(ctx context.Context, objectName pgtype.UUID) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM chunk_part WHERE object_name = $1`, objectName); err != nil {
		return fmt.Errorf("delete chunk parts: %w", err)
	}
	if _, err := q.db.Exec(ctx, `DELETE FROM chunk_upload WHERE object_name = $1`, objectName); err != nil {
		return fmt.Errorf("delete chunk upload: %w", err)
	}
	return nil
}

type InsertChunkPartParams struct {
	ObjectName pgtype.UUID
	PartNumber int32
	ETag       string
	OwnerID    pgtype.UUID
}

func (q *Queries) InsertChunkPart(ctx context.Context, arg InsertChunkPartParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO chunk_part (object_name, part_number, e_tag, owner_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (object_name, part_number) DO UPDATE SET e_tag = EXCLUDED.e_tag
	`, arg.ObjectName, arg.PartNumber, arg.ETag, arg.OwnerID)
	if err != nil {
		return fmt.Errorf("insert chunk part: %w", err)
	}
	return nil
}

// ListChunkParts returns parts ordered ascending by part_number, the order
// required to assemble the multipart-complete request.
func (q *Queries) ListChunkParts(ctx context.Context, objectName pgtype.UUID) ([]ChunkPart, error) {
	rows, err := q.db.Query(ctx, `
		SELECT object_name, part_number, e_tag, owner_id, created_at
		FROM chunk_part WHERE object_name = $1
		ORDER BY part_number ASC
	`, objectName)
	if err != nil {
		return nil, fmt.Errorf("list chunk parts: %w", err)
	}
	defer rows.Close()

	var out []ChunkPart
	for rows.Next() {
		var p ChunkPart
		if err := rows.Scan(&p.ObjectName, &p.PartNumber, &p.ETag, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk part: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAbandonedChunkUploads finds active uploads untouched since before the
// cutoff, for the cleanup job's TTL reaping.
func (q *Queries) ListAbandonedChunkUploads(ctx context.Context, cutoff time.Time, limit int32) ([]ChunkUpload, error) {
	rows, err := q.db.Query(ctx, `
		SELECT object_name, external_upload_id, owner_id, file_name, chunk_size, received_bytes,
		       integrity_algorithm, integrity_hash, created_at, updated_at, completed_at
		FROM chunk_upload
		WHERE completed_at IS NULL AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list abandoned chunk uploads: %w", err)
	}
	defer rows.Close()

	var out []ChunkUpload
	for rows.Next() {
		c, err := scanChunkUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk upload: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SumActiveChunkUploadBytes is the second addend of used_quota: received
// bytes across the owner's in-progress chunked uploads.
func (q *Queries) SumActiveChunkUploadBytes(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(received_bytes), 0) FROM chunk_upload
		WHERE owner_id = $1 AND completed_at IS NULL
	`, ownerID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum active chunk upload bytes: %w", err)
	}
	return sum, nil
}
