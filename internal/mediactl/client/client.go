package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Valtis/videosite/internal/mediactl/version"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *Client) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "mediactl/"+version.Short())

	return c.httpClient.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if respBody != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(respBody)
	}
	return nil
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("%s: %s", errResp.Error.Code, errResp.Error.Message)
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
}

// InitChunkedUpload calls POST /upload/init_chunk_upload.
func (c *Client) InitChunkedUpload(ctx context.Context, req *NewChunkUploadRequest) (*NewChunkUploadResponse, error) {
	var result NewChunkUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/upload/init_chunk_upload", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadChunk calls POST /upload/chunk?upload_id=…&chunk_index=N with the
// chunk body streamed directly from r.
func (c *Client) UploadChunk(ctx context.Context, uploadID string, chunkIndex int, r io.Reader, size int64) error {
	path := fmt.Sprintf("/upload/chunk?upload_id=%s&chunk_index=%d", url.QueryEscape(uploadID), chunkIndex)
	resp, err := c.doRequest(ctx, http.MethodPost, path, r, "application/octet-stream")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}
	return nil
}

// CompleteChunkedUpload calls POST /upload/complete_chunk_upload.
func (c *Client) CompleteChunkedUpload(ctx context.Context, uploadID, fileName string) error {
	reqBody := map[string]string{"upload_id": uploadID, "file_name": fileName}
	return c.doJSON(ctx, http.MethodPost, "/upload/complete_chunk_upload", reqBody, nil)
}

// ListResources calls GET /resource/list, which answers with a bare JSON
// array, and wraps the entries in a ListResourcesResponse.
func (c *Client) ListResources(ctx context.Context) (*ListResourcesResponse, error) {
	var resources []Resource
	if err := c.doJSON(ctx, http.MethodGet, "/resource/list", nil, &resources); err != nil {
		return nil, err
	}
	return &ListResourcesResponse{Resources: resources}, nil
}

// GetMetadata calls GET /resource/{id}/metadata.
func (c *Client) GetMetadata(ctx context.Context, resourceID string) (*ResourceMetadata, error) {
	var result ResourceMetadata
	if err := c.doJSON(ctx, http.MethodGet, "/resource/"+resourceID+"/metadata", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Quota calls GET /upload/quota.
func (c *Client) Quota(ctx context.Context) (*UserQuota, error) {
	var result UserQuota
	if err := c.doJSON(ctx, http.MethodGet, "/upload/quota", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MasterPlaylistURL builds the URL to a resource's HLS master playlist, the
// link `mediactl play` opens.
func (c *Client) MasterPlaylistURL(resourceID string) string {
	return c.baseURL + "/resource/" + resourceID + "/master.m3u8"
}

// WaitForResource polls GetMetadata until the resource reaches a terminal
// status (processed or failed) or timeout elapses.
func (c *Client) WaitForResource(ctx context.Context, resourceID string, pollInterval, timeout time.Duration) (*ResourceMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			meta, err := c.GetMetadata(ctx, resourceID)
			if err != nil {
				return nil, err
			}
			if meta.Status == "processed" || meta.Status == "failed" {
				return meta, nil
			}
		}
	}
}

// UploadLargeFile drives the full chunked-upload sequence for a local file:
// init, sequential chunk puts, complete. onProgress is called after every
// chunk with cumulative bytes sent.
func (c *Client) UploadLargeFile(ctx context.Context, filePath string, onProgress func(uploaded, total int64)) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	initResp, err := c.InitChunkedUpload(ctx, &NewChunkUploadRequest{
		FileName: filepath.Base(filePath),
		FileSize: stat.Size(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to initialize chunked upload: %w", err)
	}

	buffer := make([]byte, initResp.ChunkSize)
	var uploaded int64
	chunkIndex := 1

	for {
		n, readErr := file.Read(buffer)
		if readErr != nil && readErr != io.EOF {
			return "", fmt.Errorf("failed to read chunk %d: %w", chunkIndex, readErr)
		}
		if n == 0 {
			break
		}

		if err := c.UploadChunk(ctx, initResp.UploadID, chunkIndex, bytes.NewReader(buffer[:n]), int64(n)); err != nil {
			return "", fmt.Errorf("failed to upload chunk %d: %w", chunkIndex, err)
		}

		uploaded += int64(n)
		if onProgress != nil {
			onProgress(uploaded, stat.Size())
		}
		chunkIndex++

		if readErr == io.EOF {
			break
		}
	}

	if err := c.CompleteChunkedUpload(ctx, initResp.UploadID, filepath.Base(filePath)); err != nil {
		return "", fmt.Errorf("failed to complete upload: %w", err)
	}

	return initResp.UploadID, nil
}
