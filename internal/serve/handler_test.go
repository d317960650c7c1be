package serve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/auth"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newTestMux(t *testing.T, engine *Engine, secret string) *http.ServeMux {
	t.Helper()
	verifier := auth.NewVerifier(secret)
	mux := http.NewServeMux()
	NewHandler(engine, "nginx").Register(mux, auth.Middleware(verifier), auth.OptionalMiddleware(verifier))
	return mux
}

func signTestToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String()})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func TestHandler_List_RequiresAuth(t *testing.T) {
	engine := NewEngine(newFakeQueries(), storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/resource/list", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandler_List_ReturnsOwnedResources(t *testing.T) {
	owner := uuid.New()
	queries := newFakeQueries()
	res := newResource(owner, false, db.ResourceTypeVideo)
	queries.resources[idKey(res.ID)] = res

	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/resource/list", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "test-secret", owner))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var views []ResourceView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 1 || views[0].ID != db.UUIDToString(res.ID) {
		t.Errorf("got %+v, want one view for %s", views, db.UUIDToString(res.ID))
	}
}

func TestHandler_SetPublic(t *testing.T) {
	owner := uuid.New()
	queries := newFakeQueries()
	res := newResource(owner, false, db.ResourceTypeVideo)
	queries.resources[idKey(res.ID)] = res

	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	body, _ := json.Marshal(SetPublicRequest{IsPublic: true})
	req := httptest.NewRequest(http.MethodPost, "/resource/"+db.UUIDToString(res.ID)+"/public", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "test-secret", owner))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !queries.resources[idKey(res.ID)].IsPublic {
		t.Error("expected resource to be marked public")
	}
}

func TestHandler_MasterPlaylist_AnonymousAccessToPublicResource(t *testing.T) {
	owner := uuid.New()
	queries := newFakeQueries()
	res := newResource(owner, true, db.ResourceTypeVideo)
	queries.resources[idKey(res.ID)] = res

	store := storage.NewMemoryStorage()
	store.PutObject("resource/"+db.UUIDToString(res.ID)+"/master.m3u8", []byte("#EXTM3U"), "application/vnd.apple.mpegurl")

	engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/resource/"+db.UUIDToString(res.ID)+"/master.m3u8", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if rec.Body.String() != "#EXTM3U" {
		t.Errorf("body = %q, want #EXTM3U", rec.Body.String())
	}
}

func TestHandler_MasterPlaylist_PrivateResourceNeedsOwner(t *testing.T) {
	owner := uuid.New()
	queries := newFakeQueries()
	res := newResource(owner, false, db.ResourceTypeVideo)
	queries.resources[idKey(res.ID)] = res

	store := storage.NewMemoryStorage()
	store.PutObject("resource/"+db.UUIDToString(res.ID)+"/master.m3u8", []byte("#EXTM3U"), "application/vnd.apple.mpegurl")

	engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	path := "/resource/" + db.UUIDToString(res.ID) + "/master.m3u8"

	anonReq := httptest.NewRequest(http.MethodGet, path, nil)
	anonRec := httptest.NewRecorder()
	mux.ServeHTTP(anonRec, anonReq)
	if anonRec.Code != http.StatusNotFound {
		t.Errorf("anonymous status = %d, want %d", anonRec.Code, http.StatusNotFound)
	}

	ownerReq := httptest.NewRequest(http.MethodGet, path, nil)
	ownerReq.Header.Set("Authorization", "Bearer "+signTestToken(t, "test-secret", owner))
	ownerRec := httptest.NewRecorder()
	mux.ServeHTTP(ownerRec, ownerReq)
	if ownerRec.Code != http.StatusOK {
		t.Errorf("owner status = %d, want %d", ownerRec.Code, http.StatusOK)
	}
}

func TestHandler_OEmbed(t *testing.T) {
	owner := uuid.New()
	queries := newFakeQueries()
	res := newResource(owner, true, db.ResourceTypeVideo)
	queries.resources[idKey(res.ID)] = res
	queries.videoByResource[idKey(res.ID)] = db.VideoMetadata{Width: 640, Height: 360}

	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
	mux := newTestMux(t, engine, "test-secret")

	embedURL := "https://example.test/player.html?resource_id=" + db.UUIDToString(res.ID)
	req := httptest.NewRequest(http.MethodGet, "/resource/oembed.json?url="+embedURL, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp OEmbed
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != "video" {
		t.Errorf("type = %q, want video", resp.Type)
	}
}
