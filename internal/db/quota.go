package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateCompletedUploadParams struct {
	OwnerID    pgtype.UUID
	ResourceID pgtype.UUID
	FileSize   int64
}

func (q *Queries) CreateCompletedUpload(ctx context.Context, arg CreateCompletedUploadParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO completed_upload (owner_id, resource_id, file_size)
		VALUES ($1, $2, $3)
	`, arg.OwnerID, arg.ResourceID, arg.FileSize)
	if err != nil {
		return fmt.Errorf("create completed upload: %w", err)
	}
	return nil
}

func (q *Queries) DeleteCompletedUpload(ctx context.Context, resourceID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM completed_upload WHERE resource_id = $1`, resourceID)
	if err != nil {
		return fmt.Errorf("delete completed upload: %w", err)
	}
	return nil
}

func (q *Queries) SumCompletedUploadBytes(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(file_size), 0) FROM completed_upload WHERE owner_id = $1
	`, ownerID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum completed upload bytes: %w", err)
	}
	return sum, nil
}

func (q *Queries) GetUserUploadQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	var quota int64
	err := q.db.QueryRow(ctx, `SELECT upload_quota FROM user_upload_quota WHERE owner_id = $1`, ownerID).Scan(&quota)
	if err != nil {
		return 0, fmt.Errorf("get user upload quota: %w", err)
	}
	return quota, nil
}

// UsedQuota is the direct-upload contract's used_quota = Σ completed file
// sizes + Σ received bytes of active chunk uploads.
func (q *Queries) UsedQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	completed, err := q.SumCompletedUploadBytes(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	active, err := q.SumActiveChunkUploadBytes(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return completed + active, nil
}

// GetTodayEgressQuotaUsed returns the running total carried by the latest
// row created today (UTC); zero if no row exists yet.
func (q *Queries) GetTodayEgressQuotaUsed(ctx context.Context) (int64, error) {
	var used int64
	err := q.db.QueryRow(ctx, `
		SELECT quota_used FROM egress_quota_ledger
		WHERE created_at >= date_trunc('day', now() AT TIME ZONE 'utc') AT TIME ZONE 'utc'
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get today egress quota used: %w", err)
	}
	return used, nil
}

// IncrementEgressQuotaUsed inserts the day's next running total, computed as
// today's latest total plus delta. The read and the insert are separate
// statements, so two concurrent relays can build on the same total and the
// newest row then misses one of their deltas; the ledger is a race-tolerant
// counter and accepts that undercount and the small quota overshoot it allows.
func (q *Queries) IncrementEgressQuotaUsed(ctx context.Context, delta int64) error {
	current, err := q.GetTodayEgressQuotaUsed(ctx)
	if err != nil {
		return err
	}
	_, err = q.db.Exec(ctx, `
		INSERT INTO egress_quota_ledger (quota_used) VALUES ($1)
	`, current+delta)
	if err != nil {
		return fmt.Errorf("increment egress quota used: %w", err)
	}
	return nil
}
