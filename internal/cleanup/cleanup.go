// Package cleanup reaps chunked uploads abandoned past their TTL: the
// client vanished mid-upload (crashed, closed the tab, lost network) and
// left an open multipart upload and a chunk_upload row behind. It is
// grounded on the teacher's cmd/cleanup soft-delete/retention sweep,
// generalized from file rows to chunk_upload rows since this domain keeps
// no soft-delete bit on resources.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/ingestion"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the subset of db.Queries this job needs.
type Querier interface {
	ListAbandonedChunkUploads(ctx context.Context, cutoff time.Time, limit int32) ([]db.ChunkUpload, error)
	DeleteChunkUpload(ctx context.Context, objectName pgtype.UUID) error
}

type Stats struct {
	Reaped int
	Errors int
}

// Run finds every chunk_upload row untouched since before now-ttl, aborts
// its in-progress multipart upload, and deletes the row (and its chunk_part
// rows). A storage abort failure is logged and the row is left in place so
// the next run retries it; a database delete failure is likewise logged
// rather than aborting the whole batch, matching the teacher's
// log-and-continue sweep so one bad row can't starve the rest.
func Run(ctx context.Context, queries Querier, store storage.Storage, ttl time.Duration) (*Stats, error) {
	log := logger.FromContext(ctx)
	cutoff := time.Now().Add(-ttl)
	stats := &Stats{}

	const batchSize = int32(100)
	for {
		abandoned, err := queries.ListAbandonedChunkUploads(ctx, cutoff, batchSize)
		if err != nil {
			return stats, fmt.Errorf("list abandoned chunk uploads: %w", err)
		}
		if len(abandoned) == 0 {
			break
		}

		for _, upload := range abandoned {
			objectName := uuid.UUID(upload.ObjectName.Bytes).String()
			key := ingestion.DirectUploadKey(objectName)

			if err := store.AbortMultipartUpload(ctx, key, upload.ExternalUploadID); err != nil {
				log.Warn("failed to abort multipart upload",
					"object_name", objectName,
					"upload_id", upload.ExternalUploadID,
					"error", err,
				)
				stats.Errors++
				continue
			}

			if err := queries.DeleteChunkUpload(ctx, upload.ObjectName); err != nil {
				log.Warn("failed to delete chunk upload row",
					"object_name", objectName,
					"error", err,
				)
				stats.Errors++
				continue
			}

			stats.Reaped++
		}

		if len(abandoned) < int(batchSize) {
			break
		}
	}

	log.Info("chunk upload cleanup completed", "reaped", stats.Reaped, "errors", stats.Errors)
	return stats, nil
}
