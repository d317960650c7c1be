package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type InsertAuditEventParams struct {
	EventType      string
	UserID         pgtype.UUID
	ClientIP       string
	Target         pgtype.UUID
	EventDetails   []byte
	EventTimestamp time.Time
}

// InsertAuditEvent is the cmd/audit consumer's one write: the rest of the
// pipeline only ever enqueues to audit-queue, never writes this table
// directly, matching the original audit service's sole-writer role.
func (q *Queries) InsertAuditEvent(ctx context.Context, arg InsertAuditEventParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO audit_event (event_type, user_id, client_ip, target, event_details, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, arg.EventType, arg.UserID, arg.ClientIP, arg.Target, arg.EventDetails, arg.EventTimestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
