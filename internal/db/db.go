package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so query methods can run
// either directly against the pool or inside a caller-managed transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to an open transaction. The ingestion and
// cleanup paths do not use it; their compensating deletes run as separate
// statements against the pool.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Pool adapts *pgxpool.Pool to DBTX; its Exec, Query and QueryRow methods
// already have the signatures DBTX declares.
func Pool(pool *pgxpool.Pool) DBTX {
	return pool
}

// Schema is the full DDL for a fresh database. It is executed by operators
// (or integration test setup) directly; there is no migration runner here.
const Schema = `
CREATE TABLE IF NOT EXISTS resource (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	name VARCHAR NOT NULL,
	type VARCHAR NOT NULL DEFAULT 'unknown',
	status VARCHAR NOT NULL DEFAULT 'pending',
	is_public BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_resource_owner ON resource (owner_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS chunk_upload (
	object_name UUID PRIMARY KEY,
	external_upload_id TEXT NOT NULL,
	owner_id UUID NOT NULL,
	file_name TEXT NOT NULL,
	chunk_size BIGINT NOT NULL,
	received_bytes BIGINT NOT NULL DEFAULT 0,
	integrity_algorithm TEXT NOT NULL DEFAULT 'none',
	integrity_hash TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS chunk_part (
	object_name UUID NOT NULL REFERENCES chunk_upload (object_name) ON DELETE CASCADE,
	part_number INTEGER NOT NULL,
	e_tag TEXT NOT NULL,
	owner_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (object_name, part_number)
);

CREATE TABLE IF NOT EXISTS completed_upload (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id UUID NOT NULL,
	resource_id UUID NOT NULL,
	file_size BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_completed_upload_owner ON completed_upload (owner_id);

CREATE TABLE IF NOT EXISTS video_metadata (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	resource_id UUID NOT NULL REFERENCES resource (id) ON DELETE CASCADE,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	duration_seconds DOUBLE PRECISION NOT NULL,
	bit_rate BIGINT NOT NULL,
	frame_rate DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_video_metadata_resource ON video_metadata (resource_id);

CREATE TABLE IF NOT EXISTS egress_quota_ledger (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	quota_used BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_upload_quota (
	owner_id UUID PRIMARY KEY,
	upload_quota BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id UUID NOT NULL,
	url TEXT NOT NULL,
	secret TEXT NOT NULL,
	event_types TEXT[] NOT NULL DEFAULT '{}',
	is_active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS webhook_delivery (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	webhook_id UUID NOT NULL REFERENCES webhook (id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	attempt INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_event (
	id BIGSERIAL PRIMARY KEY,
	event_type VARCHAR NOT NULL,
	user_id UUID,
	client_ip VARCHAR NOT NULL,
	target UUID,
	event_details JSONB,
	event_timestamp TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
