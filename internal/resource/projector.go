package resource

import (
	"context"
	"fmt"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/webhook"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the subset of *db.Queries the projector needs. Defined here,
// satisfied there, so tests can supply a fake without touching a database.
type Querier interface {
	CreateResource(ctx context.Context, arg db.CreateResourceParams) error
	GetResource(ctx context.Context, id pgtype.UUID) (db.Resource, error)
	UpdateResourceStatus(ctx context.Context, id pgtype.UUID, status db.ResourceStatus) (bool, error)
	UpdateResourceType(ctx context.Context, id pgtype.UUID, rtype db.ResourceType) error
	InsertVideoMetadata(ctx context.Context, arg db.InsertVideoMetadataParams) error
}

// WebhookDispatcher is the subset of webhook.Dispatcher the projector needs.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, ownerID uuid.UUID, event *webhook.Event) error
}

type Projector struct {
	queries  Querier
	webhooks WebhookDispatcher
}

func NewProjector(queries Querier, webhooks WebhookDispatcher) *Projector {
	return &Projector{queries: queries, webhooks: webhooks}
}

// Apply projects one status-queue message onto the resource table and, on a
// successful write, dispatches the matching webhook event. Backward
// transitions are rejected by db.UpdateResourceStatus, and a message whose
// status the resource already has is skipped without a write or a webhook.
// An uploaded message is the exception: CreateResource leaves an existing
// row alone, but resource.uploaded is dispatched again on every delivery.
func (p *Projector) Apply(ctx context.Context, msg StatusMessage) error {
	objectID, err := db.ParseUUID(msg.ObjectName)
	if err != nil {
		return apperror.WithRetryable(apperror.ErrMessageMalformed, false)
	}

	switch msg.Status {
	case StatusUploaded:
		return p.applyUploaded(ctx, objectID, msg)
	case StatusProcessing:
		return p.applyTransition(ctx, objectID, db.ResourceStatusProcessing, webhook.EventResourceProcessing)
	case StatusTypeResolved:
		return p.applyTypeResolved(ctx, objectID, msg)
	case StatusProcessed:
		return p.applyProcessed(ctx, objectID, msg)
	case StatusFailed:
		return p.applyTransition(ctx, objectID, db.ResourceStatusFailed, webhook.EventResourceFailed)
	default:
		return apperror.WithRetryable(apperror.ErrMessageMalformed, false)
	}
}

func (p *Projector) applyUploaded(ctx context.Context, objectID pgtype.UUID, msg StatusMessage) error {
	ownerID, err := db.ParseUUID(msg.UserID)
	if err != nil {
		return apperror.WithRetryable(apperror.ErrMessageMalformed, false)
	}
	if err := p.queries.CreateResource(ctx, db.CreateResourceParams{
		ID:      objectID,
		OwnerID: ownerID,
		Name:    msg.FileName,
	}); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	if _, err := p.queries.UpdateResourceStatus(ctx, objectID, db.ResourceStatusPending); err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	return p.dispatch(ctx, objectID, webhook.EventResourceUploaded)
}

func (p *Projector) applyTypeResolved(ctx context.Context, objectID pgtype.UUID, msg StatusMessage) error {
	rtype, err := parseResourceType(msg.ResourceType)
	if err != nil {
		return apperror.WithRetryable(apperror.ErrMessageMalformed, false)
	}
	if err := p.queries.UpdateResourceType(ctx, objectID, rtype); err != nil {
		return fmt.Errorf("update resource type: %w", err)
	}
	return p.applyTransition(ctx, objectID, db.ResourceStatusTypeResolved, webhook.EventResourceProcessing)
}

func (p *Projector) applyProcessed(ctx context.Context, objectID pgtype.UUID, msg StatusMessage) error {
	// UpdateResourceStatus accepts a same-state write and reports it as
	// changed, so a redelivered processed message is caught here, before it
	// can insert its video metadata rows a second time.
	current, err := p.queries.GetResource(ctx, objectID)
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	if current.Status == db.ResourceStatusProcessed {
		logger.FromContext(ctx).Debug("status transition rejected as duplicate", "object_name", db.UUIDToString(objectID), "status", db.ResourceStatusProcessed)
		return nil
	}

	changed, err := p.queries.UpdateResourceStatus(ctx, objectID, db.ResourceStatusProcessed)
	if err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	if !changed {
		logger.FromContext(ctx).Debug("status transition rejected as backward or duplicate", "object_name", db.UUIDToString(objectID), "status", db.ResourceStatusProcessed)
		return nil
	}

	if msg.Metadata != nil {
		for _, rendition := range msg.Metadata.Video {
			if err := p.queries.InsertVideoMetadata(ctx, db.InsertVideoMetadataParams{
				ResourceID:      objectID,
				Width:           rendition.Width,
				Height:          rendition.Height,
				DurationSeconds: rendition.DurationSeconds,
				BitRate:         rendition.BitRate,
				FrameRate:       rendition.FrameRate,
			}); err != nil {
				return fmt.Errorf("insert video metadata: %w", err)
			}
		}
	}

	return p.dispatch(ctx, objectID, webhook.EventResourceProcessed)
}

func (p *Projector) applyTransition(ctx context.Context, objectID pgtype.UUID, status db.ResourceStatus, eventType string) error {
	current, err := p.queries.GetResource(ctx, objectID)
	if err != nil {
		return fmt.Errorf("get resource: %w", err)
	}
	if current.Status == status {
		logger.FromContext(ctx).Debug("status transition rejected as duplicate", "object_name", db.UUIDToString(objectID), "status", status)
		return nil
	}

	changed, err := p.queries.UpdateResourceStatus(ctx, objectID, status)
	if err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	if !changed {
		logger.FromContext(ctx).Debug("status transition rejected as backward or duplicate", "object_name", db.UUIDToString(objectID), "status", status)
		return nil
	}
	return p.dispatch(ctx, objectID, eventType)
}

func (p *Projector) dispatch(ctx context.Context, objectID pgtype.UUID, eventType string) error {
	resrc, err := p.queries.GetResource(ctx, objectID)
	if err != nil {
		return fmt.Errorf("get resource for webhook dispatch: %w", err)
	}

	var event *webhook.Event
	var buildErr error
	switch eventType {
	case webhook.EventResourceUploaded:
		event, buildErr = webhook.NewResourceUploadedEvent(db.UUIDToString(objectID), resrc.Name)
	case webhook.EventResourceProcessing:
		event, buildErr = webhook.NewResourceProcessingEvent(db.UUIDToString(objectID), string(resrc.Type))
	case webhook.EventResourceProcessed:
		event, buildErr = webhook.NewResourceProcessedEvent(db.UUIDToString(objectID), string(resrc.Type))
	case webhook.EventResourceFailed:
		event, buildErr = webhook.NewResourceFailedEvent(db.UUIDToString(objectID), "")
	}
	if buildErr != nil {
		return fmt.Errorf("build webhook event: %w", buildErr)
	}

	ownerID := uuid.UUID(resrc.OwnerID.Bytes)
	if err := p.webhooks.Dispatch(ctx, ownerID, event); err != nil {
		logger.FromContext(ctx).Warn("webhook dispatch failed", "error", err, "event_type", eventType)
	}
	return nil
}
