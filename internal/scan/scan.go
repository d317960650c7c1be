// Package scan implements the virus-scan pipeline stage: it streams a
// freshly uploaded object from its presigned URL into ClamAV over TCP and
// turns the daemon's verdict into the scan-queue / status-queue pair the
// rest of the pipeline expects, grounded on the original virus-scan
// service's scan_file.
package scan

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/dutchcoders/go-clamd"
	"github.com/google/uuid"
)

// Broker is the subset of the job-queue broker the scanner emits to.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

// UploadMessage is the upload-queue message consumed by this stage.
type UploadMessage struct {
	PresignedURL string `json:"presigned_url"`
	FileSize     int64  `json:"file_size"`
	ObjectName   string `json:"object_name"`
}

// ScanQueueMessage is handed to the probe worker once a file is confirmed
// (or presumed, via the size-skip rule) clean.
type ScanQueueMessage struct {
	PresignedURL string `json:"presigned_url"`
	ObjectName   string `json:"object_name"`
}

type Engine struct {
	clamav           *clamd.Clamd
	httpClient       *http.Client
	broker           Broker
	audit            *audit.Emitter
	scanQueue        string
	statusQueue      string
	maxScanSizeBytes int64
}

func NewEngine(clamAddr string, broker Broker, auditEmitter *audit.Emitter, scanQueue, statusQueue string, maxScanSizeMegabytes int64) *Engine {
	return &Engine{
		clamav:           clamd.NewClamd("tcp://" + clamAddr),
		httpClient:       &http.Client{},
		broker:           broker,
		audit:            auditEmitter,
		scanQueue:        scanQueue,
		statusQueue:      statusQueue,
		maxScanSizeBytes: maxScanSizeMegabytes * 1024 * 1024,
	}
}

// statusUpdate mirrors the status-queue wire shape the resource projector
// consumes for transitions carrying only object_name + status.
type statusUpdate struct {
	Status     string `json:"status"`
	ObjectName string `json:"object_name"`
}

// Scan handles one upload-queue message: files at or above the configured
// size ceiling skip the scan entirely and are treated as clean, matching
// the original service's size-skip behavior. A scan failure or positive
// detection routes the resource straight to failed; it never reaches the
// probe worker.
func (e *Engine) Scan(ctx context.Context, msg UploadMessage) error {
	if msg.FileSize >= e.maxScanSizeBytes {
		e.audit.EmitDetails(ctx, audit.EventScanResponse, nil, "", objectTarget(msg.ObjectName), map[string]any{
			"status":   "skipped",
			"reason":   "file size exceeds maximum allowed size",
			"file_size": msg.FileSize,
			"max_size":  e.maxScanSizeBytes,
		})
		return e.markClean(msg)
	}

	clean, detail, err := e.scanStream(ctx, msg.PresignedURL)
	if err != nil {
		e.audit.EmitDetails(ctx, audit.EventScanResponse, nil, "", objectTarget(msg.ObjectName), map[string]any{
			"status": "scan_failed",
			"error":  err.Error(),
		})
		return e.markFailed(msg, apperror.Wrap(err, apperror.ErrUpstreamUnavailable))
	}
	if !clean {
		e.audit.EmitDetails(ctx, audit.EventScanResponse, nil, "", objectTarget(msg.ObjectName), map[string]any{
			"status":        "infected",
			"scan_response": detail,
		})
		return e.markFailed(msg, apperror.ErrInfected)
	}

	e.audit.EmitDetails(ctx, audit.EventScanResponse, nil, "", objectTarget(msg.ObjectName), map[string]any{"status": "clean"})
	return e.markClean(msg)
}

func (e *Engine) markClean(msg UploadMessage) error {
	if _, err := e.broker.Enqueue(e.scanQueue, ScanQueueMessage{PresignedURL: msg.PresignedURL, ObjectName: msg.ObjectName}); err != nil {
		return fmt.Errorf("enqueue scan-queue message: %w", err)
	}
	if _, err := e.broker.Enqueue(e.statusQueue, statusUpdate{Status: "processing", ObjectName: msg.ObjectName}); err != nil {
		return fmt.Errorf("enqueue status message: %w", err)
	}
	return nil
}

func (e *Engine) markFailed(msg UploadMessage, cause error) error {
	if _, err := e.broker.Enqueue(e.statusQueue, statusUpdate{Status: "failed", ObjectName: msg.ObjectName}); err != nil {
		return fmt.Errorf("enqueue status message: %w (scan cause: %v)", err, cause)
	}
	return nil
}

// scanStream pings the daemon for liveness, then streams the object body
// directly into ClamAV without buffering it to disk.
func (e *Engine) scanStream(ctx context.Context, presignedURL string) (clean bool, detail string, err error) {
	if err := e.clamav.Ping(); err != nil {
		return false, "", fmt.Errorf("clamav unavailable: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return false, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("download object for scan: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("download object for scan: status %d", resp.StatusCode)
	}

	abort := make(chan bool)
	results, err := e.clamav.ScanStream(resp.Body, abort)
	if err != nil {
		return false, "", fmt.Errorf("clamav scan stream: %w", err)
	}

	var lastDetail string
	for res := range results {
		lastDetail = res.Description
		switch res.Status {
		case clamd.RES_OK:
			continue
		case clamd.RES_FOUND:
			return false, lastDetail, nil
		default:
			return false, lastDetail, fmt.Errorf("clamav returned status %q: %s", res.Status, res.Description)
		}
	}
	return true, lastDetail, nil
}

func objectTarget(objectName string) *uuid.UUID {
	id, err := uuid.Parse(objectName)
	if err != nil {
		return nil
	}
	return &id
}
