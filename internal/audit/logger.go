// Package audit publishes fire-and-forget trail entries to audit-queue.
// Nothing in the pipeline writes the audit_event table directly; only the
// cmd/audit consumer does, mirroring the original audit service's
// sole-writer design. A dispatch failure here is logged and swallowed: the
// audit trail never blocks the resource pipeline.
package audit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/Valtis/videosite/internal/logger"
	"github.com/google/uuid"
)

type Message struct {
	EventType    string          `json:"event_type"`
	UserID       *uuid.UUID      `json:"user_id,omitempty"`
	ClientIP     string          `json:"client_ip"`
	Target       *uuid.UUID      `json:"target,omitempty"`
	EventDetails json.RawMessage `json:"event_details,omitempty"`
}

const (
	EventUpload                     = "upload"
	EventScanResponse               = "scan_response"
	EventQuotaExceeded              = "quota_exceeded"
	EventTransferQuota              = "transfer_quota_exceeded"
	EventResourcePublicStatusUpdate = "resource_public_status_updated"
)

// Broker is the subset of the job-queue broker the emitter needs.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

type Emitter struct {
	broker Broker
	queue  string
}

func NewEmitter(broker Broker, queue string) *Emitter {
	return &Emitter{broker: broker, queue: queue}
}

func (e *Emitter) Emit(ctx context.Context, msg Message) {
	if e == nil || e.broker == nil {
		return
	}
	if _, err := e.broker.Enqueue(e.queue, msg); err != nil {
		logger.FromContext(ctx).Warn("audit event dispatch failed", "event_type", msg.EventType, "error", err)
	}
}

func (e *Emitter) EmitDetails(ctx context.Context, eventType string, userID *uuid.UUID, clientIP string, target *uuid.UUID, details any) {
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err == nil {
			raw = stripNullBytes(b)
		}
	}
	e.Emit(ctx, Message{
		EventType:    eventType,
		UserID:       userID,
		ClientIP:     clientIP,
		Target:       target,
		EventDetails: raw,
	})
}

// stripNullBytes removes embedded NUL bytes, which Postgres JSONB rejects;
// the audit consumer would otherwise fail the insert on binary-laden
// event_details (e.g. a virus scanner's raw response line).
func stripNullBytes(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != 0 {
			out = append(out, c)
		}
	}
	return out
}

// ClientIP resolves the caller's address according to the deployment's
// trust policy (reverse proxy header vs. raw remote addr), matching the
// original service's nginx/CloudFront/Cloudflare header selection.
func ClientIP(r *http.Request, ipSource string) string {
	switch ipSource {
	case "amazon":
		if ip := r.Header.Get("CloudFront-Viewer-Address"); ip != "" {
			if host, _, err := net.SplitHostPort(ip); err == nil {
				return host
			}
			return ip
		}
	case "cloudflare":
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
			return ip
		}
	case "nginx":
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return rightmostForwardedFor(xff)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rightmostForwardedFor(xff string) string {
	last := xff
	for i := len(xff) - 1; i >= 0; i-- {
		if xff[i] == ',' {
			last = xff[i+1:]
			break
		}
	}
	for len(last) > 0 && last[0] == ' ' {
		last = last[1:]
	}
	return last
}
