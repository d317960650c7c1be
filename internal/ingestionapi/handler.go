// Package ingestionapi wires the upload ingress engine into HTTP handlers,
// the way the teacher's internal/api/chunked_upload.go exposes its session
// store, but backed by ingestion.Engine's Postgres-persisted state instead
// of an in-memory session map.
package ingestionapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/auth"
	"github.com/Valtis/videosite/internal/ingestion"
	"github.com/jackc/pgx/v5/pgtype"
)

const maxDirectUploadSize = 4 << 30 // 4 GiB, per the direct-upload ceiling

type QuotaQuerier = ingestion.QuotaQuerier

type Handler struct {
	engine *ingestion.Engine
	quota  QuotaQuerier
}

func NewHandler(engine *ingestion.Engine, quota QuotaQuerier) *Handler {
	return &Handler{engine: engine, quota: quota}
}

// NewChunkUploadRequest is the body of POST /upload/init_chunk_upload.
type NewChunkUploadRequest struct {
	FileName            string  `json:"file_name"`
	FileSize            int64   `json:"file_size"`
	IntegrityCheckType  string  `json:"integrity_check_type"`
	IntegrityCheckValue *string `json:"integrity_check_value,omitempty"`
}

// NewChunkUploadResponse is returned from POST /upload/init_chunk_upload.
type NewChunkUploadResponse struct {
	UploadID  string `json:"upload_id"`
	ChunkSize int64  `json:"chunk_size"`
}

// CompleteUploadRequest is the body of POST /upload/complete_chunk_upload.
type CompleteUploadRequest struct {
	UploadID string `json:"upload_id"`
	FileName string `json:"file_name,omitempty"`
}

// UserQuota is returned from GET /upload/quota.
type UserQuota struct {
	UsedQuota  int64 `json:"used_quota"`
	TotalQuota int64 `json:"total_quota"`
}

// UploadFile handles POST /upload/file: a single multipart form whose parts
// are each streamed straight into a direct upload. An unauthenticated caller
// gets a 401 JSON error; otherwise it answers 303 to /index.html on success
// and to /index.html?error=<code> on failure.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	if err := r.ParseMultipartForm(maxDirectUploadSize); err != nil {
		http.Redirect(w, r, "/index.html?error="+apperror.Code(apperror.ErrInputInvalid), http.StatusSeeOther)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		http.Redirect(w, r, "/index.html?error="+apperror.Code(apperror.ErrInputInvalid), http.StatusSeeOther)
		return
	}

	for _, header := range r.MultipartForm.File["file"] {
		f, err := header.Open()
		if err != nil {
			http.Redirect(w, r, "/index.html?error="+apperror.Code(apperror.ErrInputInvalid), http.StatusSeeOther)
			return
		}
		_, err = h.engine.DirectUpload(r.Context(), userID, header.Filename, f)
		_ = f.Close()
		if err != nil {
			http.Redirect(w, r, "/index.html?error="+apperror.Code(err), http.StatusSeeOther)
			return
		}
	}

	http.Redirect(w, r, "/index.html", http.StatusSeeOther)
}

// InitChunkUpload handles POST /upload/init_chunk_upload.
func (h *Handler) InitChunkUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	var req NewChunkUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}
	if req.FileName == "" || req.FileSize <= 0 {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}
	integrityAlgorithm := req.IntegrityCheckType
	if integrityAlgorithm == "" {
		integrityAlgorithm = "none"
	}

	objectName, chunkSize, err := h.engine.InitChunkUpload(r.Context(), userID, req.FileName, req.FileSize, integrityAlgorithm)
	if err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(NewChunkUploadResponse{UploadID: objectName, ChunkSize: chunkSize})
}

// UploadChunk handles POST /upload/chunk?upload_id=…&chunk_index=N.
func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	uploadID := r.URL.Query().Get("upload_id")
	chunkIndex, convErr := strconv.ParseInt(r.URL.Query().Get("chunk_index"), 10, 32)
	if uploadID == "" || convErr != nil || chunkIndex <= 0 {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	data, err := readChunkBody(r)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	if err := h.engine.UploadChunk(r.Context(), userID, uploadID, int32(chunkIndex), data); err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readChunkBody accepts either a raw request body or a multipart "file"
// field, matching clients that post chunks as plain bytes and clients that
// reuse a multipart form uploader for every request.
func readChunkBody(r *http.Request) ([]byte, error) {
	if mf, _, err := r.FormFile("file"); err == nil {
		defer mf.Close()
		return io.ReadAll(mf)
	}
	return io.ReadAll(r.Body)
}

// CompleteChunkUpload handles POST /upload/complete_chunk_upload.
func (h *Handler) CompleteChunkUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UploadID == "" {
		apperror.WriteJSON(w, r, apperror.WithRetryable(apperror.ErrInputInvalid, false))
		return
	}

	if err := h.engine.CompleteChunkUpload(r.Context(), userID, req.UploadID, req.FileName, nil); err != nil {
		apperror.WriteJSON(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Quota handles GET /upload/quota.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
		return
	}

	ownerPG := pgtype.UUID{Bytes: userID, Valid: true}
	used, err := h.quota.UsedQuota(r.Context(), ownerPG)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}
	total, err := h.quota.GetUserUploadQuota(r.Context(), ownerPG)
	if err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(UserQuota{UsedQuota: used, TotalQuota: total})
}
