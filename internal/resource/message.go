// Package resource implements the status projector: the single consumer
// that mutates the resource table, driven by status-queue messages from
// every upstream stage. No other package writes resource rows directly.
package resource

import (
	"encoding/json"
	"fmt"

	"github.com/Valtis/videosite/internal/db"
)

// StatusMessage is the tagged union carried on status-queue. Exactly one of
// the variant-specific fields is populated, selected by Status.
type StatusMessage struct {
	Status       string          `json:"status"`
	ObjectName   string          `json:"object_name"`
	UserID       string          `json:"user_id,omitempty"`
	FileName     string          `json:"file_name,omitempty"`
	ResourceType string          `json:"resource_type,omitempty"`
	Metadata     *MetadataUnion  `json:"metadata,omitempty"`
}

const (
	StatusUploaded     = "uploaded"
	StatusProcessing   = "processing"
	StatusTypeResolved = "type_resolved"
	StatusProcessed    = "processed"
	StatusFailed       = "failed"
)

// MetadataUnion carries the per-kind completion payload for a `processed`
// message. Only Video is implemented today; Audio/Image are accepted as
// opaque raw messages so a future stage can populate them without a wire
// format break.
type MetadataUnion struct {
	Video []VideoRendition `json:"Video,omitempty"`
	Audio json.RawMessage  `json:"Audio,omitempty"`
	Image json.RawMessage  `json:"Image,omitempty"`
}

type VideoRendition struct {
	Width           int32   `json:"width"`
	Height          int32   `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	BitRate         int64   `json:"bit_rate"`
	FrameRate       float64 `json:"frame_rate"`
}

func parseResourceType(s string) (db.ResourceType, error) {
	switch db.ResourceType(s) {
	case db.ResourceTypeVideo, db.ResourceTypeAudio, db.ResourceTypeImage, db.ResourceTypeOther:
		return db.ResourceType(s), nil
	default:
		return "", fmt.Errorf("unknown resource type %q", s)
	}
}
