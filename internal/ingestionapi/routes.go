package ingestionapi

import "net/http"

// Register attaches the ingress endpoints to mux, matching SPEC_FULL.md's
// HTTP surface for the ingestion service.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload/file", h.UploadFile)
	mux.HandleFunc("POST /upload/init_chunk_upload", h.InitChunkUpload)
	mux.HandleFunc("POST /upload/chunk", h.UploadChunk)
	mux.HandleFunc("POST /upload/complete_chunk_upload", h.CompleteChunkUpload)
	mux.HandleFunc("GET /upload/quota", h.Quota)
}
