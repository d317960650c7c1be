package client

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of ClientInterface for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SetAPIKey(apiKey string) {
	m.Called(apiKey)
}

func (m *MockClient) InitChunkedUpload(ctx context.Context, req *NewChunkUploadRequest) (*NewChunkUploadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*NewChunkUploadResponse), args.Error(1)
}

func (m *MockClient) UploadChunk(ctx context.Context, uploadID string, chunkIndex int, r io.Reader, size int64) error {
	args := m.Called(ctx, uploadID, chunkIndex, r, size)
	return args.Error(0)
}

func (m *MockClient) CompleteChunkedUpload(ctx context.Context, uploadID, fileName string) error {
	args := m.Called(ctx, uploadID, fileName)
	return args.Error(0)
}

func (m *MockClient) UploadLargeFile(ctx context.Context, filePath string, onProgress func(uploaded, total int64)) (string, error) {
	args := m.Called(ctx, filePath, onProgress)
	return args.String(0), args.Error(1)
}

func (m *MockClient) ListResources(ctx context.Context) (*ListResourcesResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ListResourcesResponse), args.Error(1)
}

func (m *MockClient) GetMetadata(ctx context.Context, resourceID string) (*ResourceMetadata, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResourceMetadata), args.Error(1)
}

func (m *MockClient) Quota(ctx context.Context) (*UserQuota, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserQuota), args.Error(1)
}

func (m *MockClient) MasterPlaylistURL(resourceID string) string {
	args := m.Called(resourceID)
	return args.String(0)
}

func (m *MockClient) WaitForResource(ctx context.Context, resourceID string, pollInterval, timeout time.Duration) (*ResourceMetadata, error) {
	args := m.Called(ctx, resourceID, pollInterval, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResourceMetadata), args.Error(1)
}
