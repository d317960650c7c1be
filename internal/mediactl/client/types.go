package client

import "time"

// Resource mirrors serve.ResourceView, one entry of the JSON array GET
// /resource/list returns. serve.ResourceView carries no created_at, so
// CreatedAt is left as the zero time for entries decoded from the server.
type Resource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

type ListResourcesResponse struct {
	Resources []Resource `json:"resources"`
}

// VideoMetadata mirrors serve.VideoMetadataView.
type VideoMetadata struct {
	Width           int32   `json:"width"`
	Height          int32   `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	BitRate         int64   `json:"bit_rate"`
	FrameRate       float64 `json:"frame_rate"`
}

// ResourceMetadata mirrors serve.ResourceMetadata, the shape returned by GET
// /resource/{id}/metadata.
type ResourceMetadata struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status string         `json:"status"`
	Video  *VideoMetadata `json:"video,omitempty"`
}

// NewChunkUploadRequest mirrors ingestionapi.NewChunkUploadRequest, the body
// of POST /upload/init_chunk_upload.
type NewChunkUploadRequest struct {
	FileName            string  `json:"file_name"`
	FileSize            int64   `json:"file_size"`
	IntegrityCheckType  string  `json:"integrity_check_type"`
	IntegrityCheckValue *string `json:"integrity_check_value,omitempty"`
}

// NewChunkUploadResponse mirrors ingestionapi.NewChunkUploadResponse.
type NewChunkUploadResponse struct {
	UploadID  string `json:"upload_id"`
	ChunkSize int64  `json:"chunk_size"`
}

// UserQuota mirrors ingestionapi.UserQuota, the body of GET /upload/quota.
type UserQuota struct {
	UsedQuota  int64 `json:"used_quota"`
	TotalQuota int64 `json:"total_quota"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
