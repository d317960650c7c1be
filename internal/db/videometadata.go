package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

type InsertVideoMetadataParams struct {
	ResourceID      pgtype.UUID
	Width           int32
	Height          int32
	DurationSeconds float64
	BitRate         int64
	FrameRate       float64
}

func (q *Queries) InsertVideoMetadata(ctx context.Context, arg InsertVideoMetadataParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO video_metadata (resource_id, width, height, duration_seconds, bit_rate, frame_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, arg.ResourceID, arg.Width, arg.Height, arg.DurationSeconds, arg.BitRate, arg.FrameRate)
	if err != nil {
		return fmt.Errorf("insert video metadata: %w", err)
	}
	return nil
}

func (q *Queries) ListVideoMetadata(ctx context.Context, resourceID pgtype.UUID) ([]VideoMetadata, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, resource_id, width, height, duration_seconds, bit_rate, frame_rate
		FROM video_metadata WHERE resource_id = $1
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list video metadata: %w", err)
	}
	defer rows.Close()

	var out []VideoMetadata
	for rows.Next() {
		var v VideoMetadata
		if err := rows.Scan(&v.ID, &v.ResourceID, &v.Width, &v.Height, &v.DurationSeconds, &v.BitRate, &v.FrameRate); err != nil {
			return nil, fmt.Errorf("scan video metadata: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetHighestQualityVideoMetadata returns the rendition maximizing width*height,
// the row the oEmbed and metadata endpoints surface as "the" video descriptor.
func (q *Queries) GetHighestQualityVideoMetadata(ctx context.Context, resourceID pgtype.UUID) (VideoMetadata, error) {
	rows, err := q.ListVideoMetadata(ctx, resourceID)
	if err != nil {
		return VideoMetadata{}, err
	}
	if len(rows) == 0 {
		return VideoMetadata{}, fmt.Errorf("no video metadata for resource")
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if int64(r.Width)*int64(r.Height) > int64(best.Width)*int64(best.Height) {
			best = r
		}
	}
	return best, nil
}
