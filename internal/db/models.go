// Package db holds the hand-written pgx query layer shared by every stage
// worker and the serving layer. There is no ORM: each query is a plain SQL
// string executed through pgxpool, in the style the teacher's generated
// db.Queries type was clearly meant to be used (Queries wraps a DBTX, every
// row maps onto a small struct), but written by hand since this schema has
// no sqlc source of its own.
package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type ResourceType string

const (
	ResourceTypeUnknown ResourceType = "unknown"
	ResourceTypeVideo   ResourceType = "video"
	ResourceTypeAudio   ResourceType = "audio"
	ResourceTypeImage   ResourceType = "image"
	ResourceTypeOther   ResourceType = "other"
)

type ResourceStatus string

const (
	ResourceStatusPending      ResourceStatus = "pending"
	ResourceStatusProcessing   ResourceStatus = "processing"
	ResourceStatusTypeResolved ResourceStatus = "type_resolved"
	ResourceStatusProcessed    ResourceStatus = "processed"
	ResourceStatusFailed       ResourceStatus = "failed"
)

// stateRank gives the forward ordering used to reject backward transitions.
// Failed is terminal but not "ahead" of anything; it is allowed from any state.
var stateRank = map[ResourceStatus]int{
	ResourceStatusPending:      0,
	ResourceStatusProcessing:   1,
	ResourceStatusTypeResolved: 2,
	ResourceStatusProcessed:    3,
}

// IsForwardOrSame reports whether transitioning from 'from' to 'to' is a
// legal application of a status-queue message under the monotonic state
// machine: forward progress, same-state no-ops, or a move to the terminal
// failed state.
func IsForwardOrSame(from, to ResourceStatus) bool {
	if to == ResourceStatusFailed {
		return true
	}
	if from == ResourceStatusFailed {
		return false
	}
	fromRank, fromOK := stateRank[from]
	toRank, toOK := stateRank[to]
	if !fromOK || !toOK {
		return false
	}
	return toRank >= fromRank
}

type Resource struct {
	ID        pgtype.UUID
	OwnerID   pgtype.UUID
	Name      string
	Type      ResourceType
	Status    ResourceStatus
	IsPublic  bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
	DeletedAt pgtype.Timestamptz
}

type ChunkUpload struct {
	ObjectName         pgtype.UUID
	ExternalUploadID   string
	OwnerID            pgtype.UUID
	FileName           string
	ChunkSize          int64
	ReceivedBytes      int64
	IntegrityAlgorithm string
	IntegrityHash      pgtype.Text
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
	CompletedAt        pgtype.Timestamptz
}

func (c ChunkUpload) Active() bool {
	return !c.CompletedAt.Valid
}

type ChunkPart struct {
	ObjectName pgtype.UUID
	PartNumber int32
	ETag       string
	OwnerID    pgtype.UUID
	CreatedAt  pgtype.Timestamptz
}

type CompletedUpload struct {
	ID         pgtype.UUID
	OwnerID    pgtype.UUID
	ResourceID pgtype.UUID
	FileSize   int64
	CreatedAt  pgtype.Timestamptz
}

type VideoMetadata struct {
	ID              pgtype.UUID
	ResourceID      pgtype.UUID
	Width           int32
	Height          int32
	DurationSeconds float64
	BitRate         int64
	FrameRate       float64
}

type EgressQuotaLedgerRow struct {
	ID        pgtype.UUID
	QuotaUsed int64
	CreatedAt pgtype.Timestamptz
}

type UserUploadQuota struct {
	OwnerID     pgtype.UUID
	UploadQuota int64
}

type Webhook struct {
	ID         pgtype.UUID
	OwnerID    pgtype.UUID
	URL        string
	Secret     string
	EventTypes []string
	IsActive   bool
}

type WebhookDeliveryStatus string

const (
	WebhookDeliveryPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryFailed    WebhookDeliveryStatus = "failed"
)

type WebhookDelivery struct {
	ID        pgtype.UUID
	WebhookID pgtype.UUID
	EventType string
	Payload   []byte
	Attempt   int32
	Status    WebhookDeliveryStatus
	CreatedAt pgtype.Timestamptz
}

type AuditEvent struct {
	ID             int64
	EventType      string
	UserID         pgtype.UUID
	ClientIP       string
	Target         pgtype.UUID
	EventDetails   []byte
	EventTimestamp pgtype.Timestamptz
	CreatedAt      pgtype.Timestamptz
}
