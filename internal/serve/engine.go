// Package serve implements the authorized streaming and embedding surface:
// master playlists, per-rendition HLS segments, thumbnails, typed metadata,
// and oEmbed responses, plus the per-day egress-quota ledger every fetch
// debits. It is grounded on the original resource server's send_resource /
// has_access_to_resource / transfer_quota_exceeded and the teacher's
// internal/api/cdn.go cache-control convention.
package serve

import (
	"context"
	"fmt"
	"io"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// resourceFolder is the object-store prefix every served asset lives under,
// mirroring the transcode worker's upload key layout.
const resourceFolder = "resource"

// Querier is the subset of db.Queries the serving layer reads and writes.
type Querier interface {
	GetResource(ctx context.Context, id pgtype.UUID) (db.Resource, error)
	ListActiveResourcesByOwner(ctx context.Context, ownerID pgtype.UUID) ([]db.Resource, error)
	SetResourcePublic(ctx context.Context, id, ownerID pgtype.UUID, isPublic bool) error
	GetHighestQualityVideoMetadata(ctx context.Context, resourceID pgtype.UUID) (db.VideoMetadata, error)
	GetTodayEgressQuotaUsed(ctx context.Context) (int64, error)
	IncrementEgressQuotaUsed(ctx context.Context, delta int64) error
}

type Engine struct {
	queries         Querier
	storage         storage.Storage
	audit           *audit.Emitter
	domainURL       string
	enableQuotas    bool
	dailyQuotaBytes int64
}

func NewEngine(queries Querier, store storage.Storage, auditEmitter *audit.Emitter, domainURL string, enableQuotas bool, dailyQuotaMegabytes int64) *Engine {
	return &Engine{
		queries:         queries,
		storage:         store,
		audit:           auditEmitter,
		domainURL:       domainURL,
		enableQuotas:    enableQuotas,
		dailyQuotaBytes: dailyQuotaMegabytes * 1024 * 1024,
	}
}

// ListResources returns the caller's own active resources, newest first.
func (e *Engine) ListResources(ctx context.Context, ownerID uuid.UUID) ([]db.Resource, error) {
	return e.queries.ListActiveResourcesByOwner(ctx, pgtype.UUID{Bytes: ownerID, Valid: true})
}

// SetPublic flips a resource's visibility; it only succeeds for the owning
// caller, and records an audit trail entry the way the original handler did.
func (e *Engine) SetPublic(ctx context.Context, resourceID, ownerID uuid.UUID, isPublic bool, clientIP string) error {
	resourcePG := pgtype.UUID{Bytes: resourceID, Valid: true}
	ownerPG := pgtype.UUID{Bytes: ownerID, Valid: true}

	if err := e.queries.SetResourcePublic(ctx, resourcePG, ownerPG, isPublic); err != nil {
		return apperror.ErrNotFound
	}

	e.audit.EmitDetails(ctx, audit.EventResourcePublicStatusUpdate, &ownerID, clientIP, &resourceID, map[string]any{
		"is_public": isPublic,
	})
	return nil
}

// hasAccess implements the spec's single authorization predicate: public
// resources are open to anyone, private ones only to their owner.
func hasAccess(resource db.Resource, caller *uuid.UUID) bool {
	if resource.IsPublic {
		return true
	}
	if caller == nil {
		return false
	}
	return uuid.UUID(resource.OwnerID.Bytes) == *caller
}

// resolveResource fetches an active resource and checks both its declared
// type and the caller's access, the shared precondition of every
// asset-serving and metadata endpoint.
func (e *Engine) resolveResource(ctx context.Context, resourceID uuid.UUID, wantType db.ResourceType, caller *uuid.UUID) (db.Resource, error) {
	resourcePG := pgtype.UUID{Bytes: resourceID, Valid: true}
	resource, err := e.queries.GetResource(ctx, resourcePG)
	if err != nil {
		return db.Resource{}, apperror.ErrNotFound
	}
	if wantType != "" && resource.Type != wantType {
		return db.Resource{}, apperror.ErrNotFound
	}
	if !hasAccess(resource, caller) {
		return db.Resource{}, apperror.ErrNotFound
	}
	return resource, nil
}

// Asset is a streamed object ready to be relayed to the client.
type Asset struct {
	Body         io.ReadCloser
	Size         int64
	ContentType  string
	CacheControl string
}

// FetchAsset serves one file belonging to a resource's object-store tree
// (its master playlist, a stream-variant segment, or its thumbnail),
// enforcing the egress quota admission check before streaming.
func (e *Engine) FetchAsset(ctx context.Context, resourceID uuid.UUID, fileInDirectory string, caller *uuid.UUID) (*Asset, error) {
	resource, err := e.resolveResource(ctx, resourceID, db.ResourceTypeVideo, caller)
	if err != nil {
		return nil, err
	}

	if e.quotaExceeded(ctx) {
		return nil, apperror.ErrQuotaExceeded
	}

	key := fmt.Sprintf("%s/%s/%s", resourceFolder, db.UUIDToString(resource.ID), fileInDirectory)
	body, size, err := e.storage.Download(ctx, key)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrNotFound)
	}

	if err := e.queries.IncrementEgressQuotaUsed(ctx, size); err != nil {
		// The transfer already happened; a ledger-write failure should not
		// turn into a 5xx for the caller who already has their bytes.
		_ = err
	}

	return &Asset{
		Body:         body,
		Size:         size,
		ContentType:  contentTypeFor(fileInDirectory),
		CacheControl: cacheControlFor(fileInDirectory),
	}, nil
}

// quotaExceeded implements transfer_quota_exceeded: disabled unless
// ENABLE_DATA_QUOTAS is set, and then compared against today's running total.
func (e *Engine) quotaExceeded(ctx context.Context) bool {
	if !e.enableQuotas {
		return false
	}
	used, err := e.queries.GetTodayEgressQuotaUsed(ctx)
	if err != nil {
		return false
	}
	return used > e.dailyQuotaBytes
}

// VideoMetadataView is the metadata endpoint's video-typed response body.
type VideoMetadataView struct {
	Width           int32   `json:"width"`
	Height          int32   `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	BitRate         int64   `json:"bit_rate"`
	FrameRate       float64 `json:"frame_rate"`
}

// ResourceMetadata is the response body of GET /resource/{id}/metadata.
type ResourceMetadata struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Status string             `json:"status"`
	Video  *VideoMetadataView `json:"video,omitempty"`
}

// Metadata serves the typed technical descriptor for a resource. Only video
// is implemented; audio and image resources are recognized but not yet
// described, matching the pipeline's current Non-goals.
func (e *Engine) Metadata(ctx context.Context, resourceID uuid.UUID, caller *uuid.UUID) (*ResourceMetadata, error) {
	resource, err := e.resolveResource(ctx, resourceID, "", caller)
	if err != nil {
		return nil, err
	}

	if resource.Type != db.ResourceTypeVideo {
		return nil, apperror.ErrNotFound
	}

	video, err := e.queries.GetHighestQualityVideoMetadata(ctx, resource.ID)
	if err != nil {
		return nil, apperror.ErrNotFound
	}

	return &ResourceMetadata{
		ID:     db.UUIDToString(resource.ID),
		Name:   resource.Name,
		Status: string(resource.Status),
		Video: &VideoMetadataView{
			Width:           video.Width,
			Height:          video.Height,
			DurationSeconds: video.DurationSeconds,
			BitRate:         video.BitRate,
			FrameRate:       video.FrameRate,
		},
	}, nil
}

// OEmbed is the response body of GET /resource/oembed.json.
type OEmbed struct {
	Version      string `json:"version"`
	Title        string `json:"title"`
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	CacheAge     int    `json:"cache_age"`
	ThumbnailURL string `json:"thumbnail_url"`
	Type         string `json:"type"`
	HTML         string `json:"html"`
	Width        int32  `json:"width"`
	Height       int32  `json:"height"`
}

const oEmbedProviderName = "videosite"

// OEmbedFor builds the oEmbed document for a resource, embedding an iframe
// that points back at the player page, following the original service's
// iframe_link construction.
func (e *Engine) OEmbedFor(ctx context.Context, resourceID uuid.UUID, caller *uuid.UUID) (*OEmbed, error) {
	resource, err := e.resolveResource(ctx, resourceID, db.ResourceTypeVideo, caller)
	if err != nil {
		return nil, err
	}

	video, err := e.queries.GetHighestQualityVideoMetadata(ctx, resource.ID)
	if err != nil {
		return nil, apperror.ErrNotFound
	}

	idStr := db.UUIDToString(resource.ID)
	iframe := fmt.Sprintf(
		`<iframe width="%d" height="%d" src="%splayer.html?resource_id=%s" frameborder="0" allow="autoplay; picture-in-picture" allowfullscreen></iframe>`,
		video.Width, video.Height, e.domainURL, idStr,
	)

	return &OEmbed{
		Version:      "1.0",
		Title:        resource.Name,
		ProviderName: oEmbedProviderName,
		ProviderURL:  e.domainURL,
		CacheAge:     3600,
		ThumbnailURL: fmt.Sprintf("%sresource/%s/thumbnail.jpg", e.domainURL, idStr),
		Type:         "video",
		HTML:         iframe,
		Width:        video.Width,
		Height:       video.Height,
	}, nil
}
