package audit

import (
	"context"
	"time"

	"github.com/Valtis/videosite/internal/db"
	"github.com/jackc/pgx/v5/pgtype"
)

// Inserter is the sole write this consumer performs, matching the original
// audit service's one job: receive, insert, delete. *db.Queries satisfies
// this directly.
type Inserter interface {
	InsertAuditEvent(ctx context.Context, arg db.InsertAuditEventParams) error
}

// Engine turns a dispatched Message into a durable row. It is the only
// piece of the pipeline that ever writes the audit_event table; every
// other stage only calls Emitter.Emit.
type Engine struct {
	inserter Inserter
}

func NewEngine(inserter Inserter) *Engine {
	return &Engine{inserter: inserter}
}

// Insert translates the queue message into the row shape, using the
// receipt time as EventTimestamp since the Redis Streams broker carries no
// equivalent of SQS's SentTimestamp system attribute.
func (e *Engine) Insert(ctx context.Context, msg Message) error {
	var userID, target pgtype.UUID
	if msg.UserID != nil {
		userID = pgtype.UUID{Bytes: *msg.UserID, Valid: true}
	}
	if msg.Target != nil {
		target = pgtype.UUID{Bytes: *msg.Target, Valid: true}
	}

	return e.inserter.InsertAuditEvent(ctx, db.InsertAuditEventParams{
		EventType:      msg.EventType,
		UserID:         userID,
		ClientIP:       msg.ClientIP,
		Target:         target,
		EventDetails:   []byte(msg.EventDetails),
		EventTimestamp: time.Now().UTC(),
	})
}
