package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateResourceParams struct {
	ID      pgtype.UUID
	OwnerID pgtype.UUID
	Name    string
}

// CreateResource inserts the pending row created by an `uploaded`
// status-queue message. It is idempotent on id: a redelivered message
// re-applies the same insert harmlessly.
func (q *Queries) CreateResource(ctx context.Context, arg CreateResourceParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO resource (id, owner_id, name, type, status)
		VALUES ($1, $2, $3, 'unknown', 'pending')
		ON CONFLICT (id) DO NOTHING
	`, arg.ID, arg.OwnerID, arg.Name)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func scanResource(row pgx.Row) (Resource, error) {
	var r Resource
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Type, &r.Status, &r.IsPublic, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	return r, err
}

func (q *Queries) GetResource(ctx context.Context, id pgtype.UUID) (Resource, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, owner_id, name, type, status, is_public, created_at, updated_at, deleted_at
		FROM resource WHERE id = $1 AND deleted_at IS NULL
	`, id)
	r, err := scanResource(row)
	if err != nil {
		return Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

func (q *Queries) ListActiveResourcesByOwner(ctx context.Context, ownerID pgtype.UUID) ([]Resource, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, owner_id, name, type, status, is_public, created_at, updated_at, deleted_at
		FROM resource WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateResourceStatus applies a status-queue transition. It is a no-op
// (returns nil, changed=false) if the transition would move backward,
// implementing the state machine's monotonic-forward invariant at the
// single write path that mutates status.
func (q *Queries) UpdateResourceStatus(ctx context.Context, id pgtype.UUID, status ResourceStatus) (changed bool, err error) {
	current, err := q.GetResource(ctx, id)
	if err != nil {
		return false, err
	}
	if !IsForwardOrSame(current.Status, status) {
		return false, nil
	}
	_, err = q.db.Exec(ctx, `
		UPDATE resource SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return false, fmt.Errorf("update resource status: %w", err)
	}
	return true, nil
}

func (q *Queries) UpdateResourceType(ctx context.Context, id pgtype.UUID, rtype ResourceType) error {
	_, err := q.db.Exec(ctx, `
		UPDATE resource SET type = $2, updated_at = now() WHERE id = $1
	`, id, rtype)
	if err != nil {
		return fmt.Errorf("update resource type: %w", err)
	}
	return nil
}

func (q *Queries) SetResourcePublic(ctx context.Context, id, ownerID pgtype.UUID, isPublic bool) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE resource SET is_public = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, id, ownerID, isPublic)
	if err != nil {
		return fmt.Errorf("set resource public: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
