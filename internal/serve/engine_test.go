package serve

import (
	"context"
	"io"
	"testing"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct {
	resources        map[string]db.Resource
	videoByResource  map[string]db.VideoMetadata
	egressUsed       int64
	egressIncrements []int64
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		resources:       make(map[string]db.Resource),
		videoByResource: make(map[string]db.VideoMetadata),
	}
}

func idKey(id pgtype.UUID) string { return uuid.UUID(id.Bytes).String() }

func (f *fakeQueries) GetResource(ctx context.Context, id pgtype.UUID) (db.Resource, error) {
	res, ok := f.resources[idKey(id)]
	if !ok {
		return db.Resource{}, assert.AnError
	}
	return res, nil
}

func (f *fakeQueries) ListActiveResourcesByOwner(ctx context.Context, ownerID pgtype.UUID) ([]db.Resource, error) {
	var out []db.Resource
	for _, res := range f.resources {
		if res.OwnerID == ownerID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeQueries) SetResourcePublic(ctx context.Context, id, ownerID pgtype.UUID, isPublic bool) error {
	res, ok := f.resources[idKey(id)]
	if !ok || res.OwnerID != ownerID {
		return assert.AnError
	}
	res.IsPublic = isPublic
	f.resources[idKey(id)] = res
	return nil
}

func (f *fakeQueries) GetHighestQualityVideoMetadata(ctx context.Context, resourceID pgtype.UUID) (db.VideoMetadata, error) {
	v, ok := f.videoByResource[idKey(resourceID)]
	if !ok {
		return db.VideoMetadata{}, assert.AnError
	}
	return v, nil
}

func (f *fakeQueries) GetTodayEgressQuotaUsed(ctx context.Context) (int64, error) {
	return f.egressUsed, nil
}

func (f *fakeQueries) IncrementEgressQuotaUsed(ctx context.Context, delta int64) error {
	f.egressIncrements = append(f.egressIncrements, delta)
	f.egressUsed += delta
	return nil
}

func newResource(owner uuid.UUID, isPublic bool, typ db.ResourceType) db.Resource {
	return db.Resource{
		ID:       pgtype.UUID{Bytes: uuid.New(), Valid: true},
		OwnerID:  pgtype.UUID{Bytes: owner, Valid: true},
		Name:     "clip.mp4",
		Type:     typ,
		Status:   db.ResourceStatusProcessed,
		IsPublic: isPublic,
	}
}

func TestHasAccess(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	t.Run("public resource is open to anyone", func(t *testing.T) {
		res := newResource(owner, true, db.ResourceTypeVideo)
		assert.True(t, hasAccess(res, nil))
		assert.True(t, hasAccess(res, &other))
	})

	t.Run("private resource is open only to its owner", func(t *testing.T) {
		res := newResource(owner, false, db.ResourceTypeVideo)
		assert.True(t, hasAccess(res, &owner))
		assert.False(t, hasAccess(res, &other))
		assert.False(t, hasAccess(res, nil))
	})
}

func TestEngine_FetchAsset(t *testing.T) {
	owner := uuid.New()
	res := newResource(owner, true, db.ResourceTypeVideo)
	queries := newFakeQueries()
	queries.resources[idKey(res.ID)] = res

	store := storage.NewMemoryStorage()
	key := "resource/" + db.UUIDToString(res.ID) + "/master.m3u8"
	store.PutObject(key, []byte("#EXTM3U"), "application/vnd.apple.mpegurl")

	resourceID := uuid.UUID(res.ID.Bytes)

	t.Run("public resource streams for an anonymous caller", func(t *testing.T) {
		engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
		asset, err := engine.FetchAsset(context.Background(), resourceID, "master.m3u8", nil)
		require.NoError(t, err)
		defer asset.Body.Close()
		data, _ := io.ReadAll(asset.Body)
		assert.Equal(t, "#EXTM3U", string(data))
		assert.Equal(t, "application/vnd.apple.mpegurl", asset.ContentType)
	})

	t.Run("increments the egress ledger by the object size", func(t *testing.T) {
		queries.egressIncrements = nil
		engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
		_, err := engine.FetchAsset(context.Background(), resourceID, "master.m3u8", nil)
		require.NoError(t, err)
		require.Len(t, queries.egressIncrements, 1)
		assert.Equal(t, int64(len("#EXTM3U")), queries.egressIncrements[0])
	})

	t.Run("private resource rejects a non-owner", func(t *testing.T) {
		private := newResource(owner, false, db.ResourceTypeVideo)
		queries.resources[idKey(private.ID)] = private
		engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
		other := uuid.New()
		_, err := engine.FetchAsset(context.Background(), uuid.UUID(private.ID.Bytes), "master.m3u8", &other)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("missing object is reported as not found", func(t *testing.T) {
		engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)
		_, err := engine.FetchAsset(context.Background(), resourceID, "stream_0/seg_999.ts", nil)
		assert.True(t, apperror.Is(err, apperror.ErrNotFound), "got %v", err)
	})

	t.Run("rejects once the egress quota is exceeded", func(t *testing.T) {
		queries.egressUsed = 999999999999
		engine := NewEngine(queries, store, audit.NewEmitter(nil, "audit-queue"), "https://example.test/", true, 1)
		_, err := engine.FetchAsset(context.Background(), resourceID, "master.m3u8", nil)
		assert.ErrorIs(t, err, apperror.ErrQuotaExceeded)
		queries.egressUsed = 0
	})
}

func TestEngine_SetPublic(t *testing.T) {
	owner := uuid.New()
	res := newResource(owner, false, db.ResourceTypeVideo)
	queries := newFakeQueries()
	queries.resources[idKey(res.ID)] = res
	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)

	t.Run("owner can flip visibility", func(t *testing.T) {
		err := engine.SetPublic(context.Background(), uuid.UUID(res.ID.Bytes), owner, true, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, queries.resources[idKey(res.ID)].IsPublic)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		err := engine.SetPublic(context.Background(), uuid.UUID(res.ID.Bytes), uuid.New(), false, "10.0.0.1")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestEngine_Metadata(t *testing.T) {
	owner := uuid.New()
	res := newResource(owner, true, db.ResourceTypeVideo)
	queries := newFakeQueries()
	queries.resources[idKey(res.ID)] = res
	queries.videoByResource[idKey(res.ID)] = db.VideoMetadata{
		Width: 1920, Height: 1080, DurationSeconds: 12.5, BitRate: 4_000_000, FrameRate: 30,
	}
	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)

	meta, err := engine.Metadata(context.Background(), uuid.UUID(res.ID.Bytes), nil)
	require.NoError(t, err)
	require.NotNil(t, meta.Video)
	assert.Equal(t, int32(1920), meta.Video.Width)
}

func TestEngine_OEmbedFor(t *testing.T) {
	owner := uuid.New()
	res := newResource(owner, true, db.ResourceTypeVideo)
	queries := newFakeQueries()
	queries.resources[idKey(res.ID)] = res
	queries.videoByResource[idKey(res.ID)] = db.VideoMetadata{Width: 640, Height: 360}
	engine := NewEngine(queries, storage.NewMemoryStorage(), audit.NewEmitter(nil, "audit-queue"), "https://example.test/", false, 10240)

	oembed, err := engine.OEmbedFor(context.Background(), uuid.UUID(res.ID.Bytes), nil)
	require.NoError(t, err)
	assert.Equal(t, "1.0", oembed.Version)
	assert.Contains(t, oembed.HTML, "player.html?resource_id="+db.UUIDToString(res.ID))
}
