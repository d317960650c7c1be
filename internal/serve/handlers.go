package serve

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/auth"
	"github.com/Valtis/videosite/internal/db"
	"github.com/google/uuid"
)

// Handler adapts Engine onto net/http, the same split ingestionapi.Handler
// draws against internal/ingestion.
type Handler struct {
	engine   *Engine
	ipSource string
}

func NewHandler(engine *Engine, ipSource string) *Handler {
	return &Handler{engine: engine, ipSource: ipSource}
}

// ResourceView is one entry of GET /resource/list.
type ResourceView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	IsPublic bool   `json:"is_public"`
}

// List handles GET /resource/list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	resources, err := h.engine.ListResources(r.Context(), userID)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	views := make([]ResourceView, 0, len(resources))
	for _, res := range resources {
		views = append(views, ResourceView{
			ID:       db.UUIDToString(res.ID),
			Name:     res.Name,
			Type:     string(res.Type),
			Status:   string(res.Status),
			IsPublic: res.IsPublic,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

// SetPublicRequest is the body of POST /resource/{resource_id}/public.
type SetPublicRequest struct {
	IsPublic bool `json:"is_public"`
}

// SetPublic handles POST /resource/{resource_id}/public.
func (h *Handler) SetPublic(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	resourceID, err := uuid.Parse(r.PathValue("resource_id"))
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	var req SetPublicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	clientIP := audit.ClientIP(r, h.ipSource)
	if err := h.engine.SetPublic(r.Context(), resourceID, userID, req.IsPublic, clientIP); err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// callerID reads the caller id optional middleware may have set, without
// rejecting requests that have none.
func callerID(r *http.Request) *uuid.UUID {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return nil
	}
	return &id
}

// pathResourceID parses the resource_id path segment shared by every
// asset-serving route.
func pathResourceID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("resource_id"))
}

// serveAsset is the shared relay used by MasterPlaylist, Thumbnail, and
// StreamSegment: fetch through the engine, set headers, copy the body.
func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, fileInDirectory string) {
	resourceID, err := pathResourceID(r)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	asset, err := h.engine.FetchAsset(r.Context(), resourceID, fileInDirectory, callerID(r))
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}
	defer asset.Body.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", asset.CacheControl)
	if asset.Size >= 0 {
		w.Header().Set("Content-Length", formatInt64(asset.Size))
	}
	_, _ = io.Copy(w, asset.Body)
}

// MasterPlaylist handles GET /resource/{resource_id}/master.m3u8.
func (h *Handler) MasterPlaylist(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, "master.m3u8")
}

// Thumbnail handles GET /resource/{resource_id}/thumbnail.jpg.
func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, "thumbnail.jpg")
}

// StreamSegment handles GET /resource/{resource_id}/stream_{index}/{file_name},
// relaying a single HLS rendition playlist or media segment.
func (h *Handler) StreamSegment(w http.ResponseWriter, r *http.Request) {
	streamIndex := r.PathValue("index")
	fileName := r.PathValue("file_name")
	if streamIndex == "" || fileName == "" {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}
	h.serveAsset(w, r, "stream_"+streamIndex+"/"+fileName)
}

// Metadata handles GET /resource/{resource_id}/metadata.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	resourceID, err := pathResourceID(r)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	metadata, err := h.engine.Metadata(r.Context(), resourceID, callerID(r))
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(metadata)
}

// OEmbed handles GET /resource/oembed.json?url=…, extracting resource_id
// from the embedded url's own query string the way the original oEmbed
// endpoint does.
func (h *Handler) OEmbed(w http.ResponseWriter, r *http.Request) {
	embedURL := r.URL.Query().Get("url")
	if embedURL == "" {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	resourceID, err := resourceIDFromEmbedURL(embedURL)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	oembed, err := h.engine.OEmbedFor(r.Context(), resourceID, callerID(r))
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(oembed)
}
