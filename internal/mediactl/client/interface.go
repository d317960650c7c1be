package client

import (
	"context"
	"io"
	"time"
)

// ClientInterface defines all client operations for mocking in tests. The
// Client struct implements this interface.
type ClientInterface interface {
	// SetAPIKey updates the bearer token used to authenticate against the
	// resource server.
	SetAPIKey(apiKey string)

	// Upload
	InitChunkedUpload(ctx context.Context, req *NewChunkUploadRequest) (*NewChunkUploadResponse, error)
	UploadChunk(ctx context.Context, uploadID string, chunkIndex int, r io.Reader, size int64) error
	CompleteChunkedUpload(ctx context.Context, uploadID, fileName string) error
	UploadLargeFile(ctx context.Context, filePath string, onProgress func(uploaded, total int64)) (resourceID string, err error)

	// Status / list
	ListResources(ctx context.Context) (*ListResourcesResponse, error)
	GetMetadata(ctx context.Context, resourceID string) (*ResourceMetadata, error)
	Quota(ctx context.Context) (*UserQuota, error)

	// Play
	MasterPlaylistURL(resourceID string) string

	// Polling helper
	WaitForResource(ctx context.Context, resourceID string, pollInterval, timeout time.Duration) (*ResourceMetadata, error)
}

// Ensure Client implements ClientInterface at compile time
var _ ClientInterface = (*Client)(nil)
