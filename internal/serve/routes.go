package serve

import "net/http"

// Middleware wraps a handler with cross-cutting behavior (here, auth).
type Middleware func(http.Handler) http.Handler

// Register attaches the full resource-serving surface to mux. list and the
// public-status toggle go behind strictAuth since they require a known
// caller; asset serving, metadata, and oembed go behind optionalAuth since a
// public resource must be reachable anonymously while a private one still
// needs the caller id to check ownership against — the same two-tier split
// the original service drew between auth_middleware and
// add_user_info_to_request.
func (h *Handler) Register(mux *http.ServeMux, strictAuth, optionalAuth Middleware) {
	mux.Handle("GET /resource/list", strictAuth(http.HandlerFunc(h.List)))
	mux.Handle("POST /resource/{resource_id}/public", strictAuth(http.HandlerFunc(h.SetPublic)))

	mux.Handle("GET /resource/oembed.json", optionalAuth(http.HandlerFunc(h.OEmbed)))
	mux.Handle("GET /resource/{resource_id}/master.m3u8", optionalAuth(http.HandlerFunc(h.MasterPlaylist)))
	mux.Handle("GET /resource/{resource_id}/thumbnail.jpg", optionalAuth(http.HandlerFunc(h.Thumbnail)))
	mux.Handle("GET /resource/{resource_id}/stream_{index}/{file_name}", optionalAuth(http.HandlerFunc(h.StreamSegment)))
	mux.Handle("GET /resource/{resource_id}/metadata", optionalAuth(http.HandlerFunc(h.Metadata)))
}
