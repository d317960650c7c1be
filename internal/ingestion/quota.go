package ingestion

import (
	"context"
	"fmt"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/jackc/pgx/v5/pgtype"
)

// QuotaQuerier is the subset of *db.Queries the quota check needs.
type QuotaQuerier interface {
	UsedQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error)
	GetUserUploadQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error)
}

// checkQuota reports apperror.ErrQuotaExceeded if the owner's used quota,
// plus additionalBytes, would exceed their configured upload quota. Callers
// use it both pre-flight (init/chunk) and post-commit (direct upload,
// complete), per the spec's "check at every commit point" rule.
func checkQuota(ctx context.Context, q QuotaQuerier, ownerID pgtype.UUID, additionalBytes int64) error {
	quota, err := q.GetUserUploadQuota(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("get user upload quota: %w", err)
	}
	used, err := q.UsedQuota(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("get used quota: %w", err)
	}
	if used+additionalBytes > quota {
		return apperror.ErrQuotaExceeded
	}
	return nil
}
