package ingestion

import (
	"bytes"
	"context"
	"sort"
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
	quota            int64
	completed        []db.CreateCompletedUploadParams
	chunkUploads     map[string]db.ChunkUpload
	chunkParts       map[string][]db.ChunkPart
	completedByOwner map[string]int64
}

func newFakeQueries(quota int64) *fakeQueries {
	return &fakeQueries{
		quota:            quota,
		chunkUploads:     make(map[string]db.ChunkUpload),
		chunkParts:       make(map[string][]db.ChunkPart),
		completedByOwner: make(map[string]int64),
	}
}

func key(id pgtype.UUID) string { return uuid.UUID(id.Bytes).String() }

func (f *fakeQueries) GetUserUploadQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	return f.quota, nil
}

func (f *fakeQueries) UsedQuota(ctx context.Context, ownerID pgtype.UUID) (int64, error) {
	total := f.completedByOwner[key(ownerID)]
	for _, cu := range f.chunkUploads {
		if cu.OwnerID == ownerID && !cu.CompletedAt.Valid {
			total += cu.ReceivedBytes
		}
	}
	return total, nil
}

func (f *fakeQueries) CreateCompletedUpload(ctx context.Context, arg db.CreateCompletedUploadParams) error {
	f.completed = append(f.completed, arg)
	f.completedByOwner[key(arg.OwnerID)] += arg.FileSize
	return nil
}

func (f *fakeQueries) DeleteCompletedUpload(ctx context.Context, resourceID pgtype.UUID) error {
	for i, c := range f.completed {
		if c.ResourceID == resourceID {
			f.completedByOwner[key(c.OwnerID)] -= c.FileSize
			f.completed = append(f.completed[:i], f.completed[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeQueries) CreateChunkUpload(ctx context.Context, arg db.CreateChunkUploadParams) error {
	f.chunkUploads[key(arg.ObjectName)] = db.ChunkUpload{
		ObjectName:         arg.ObjectName,
		ExternalUploadID:   arg.ExternalUploadID,
		OwnerID:            arg.OwnerID,
		FileName:           arg.FileName,
		ChunkSize:          arg.ChunkSize,
		IntegrityAlgorithm: arg.IntegrityAlgorithm,
	}
	return nil
}

func (f *fakeQueries) GetActiveChunkUpload(ctx context.Context, objectName, ownerID pgtype.UUID) (db.ChunkUpload, error) {
	cu, ok := f.chunkUploads[key(objectName)]
	if !ok || cu.CompletedAt.Valid {
		return db.ChunkUpload{}, assert.AnError
	}
	return cu, nil
}

func (f *fakeQueries) IncrementReceivedBytes(ctx context.Context, objectName pgtype.UUID, delta int64) error {
	cu := f.chunkUploads[key(objectName)]
	cu.ReceivedBytes += delta
	f.chunkUploads[key(objectName)] = cu
	return nil
}

func (f *fakeQueries) MarkChunkUploadCompleted(ctx context.Context, objectName pgtype.UUID, integrityHash *string) error {
	cu := f.chunkUploads[key(objectName)]
	cu.CompletedAt = pgtype.Timestamptz{Valid: true}
	f.chunkUploads[key(objectName)] = cu
	return nil
}

func (f *fakeQueries) DeleteChunkUpload(ctx context.Context, objectName pgtype.UUID) error {
	delete(f.chunkUploads, key(objectName))
	delete(f.chunkParts, key(objectName))
	return nil
}

func (f *fakeQueries) InsertChunkPart(ctx context.Context, arg db.InsertChunkPartParams) error {
	f.chunkParts[key(arg.ObjectName)] = append(f.chunkParts[key(arg.ObjectName)], db.ChunkPart{
		ObjectName: arg.ObjectName,
		PartNumber: arg.PartNumber,
		ETag:       arg.ETag,
		OwnerID:    arg.OwnerID,
	})
	return nil
}

func (f *fakeQueries) ListChunkParts(ctx context.Context, objectName pgtype.UUID) ([]db.ChunkPart, error) {
	parts := append([]db.ChunkPart(nil), f.chunkParts[key(objectName)]...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

type fakeBroker struct {
	messages []any
}

func (b *fakeBroker) Enqueue(jobType string, payload any) (string, error) {
	b.messages = append(b.messages, payload)
	return "job-1", nil
}

func newTestEngine(quota int64) (*Engine, *fakeQueries, *fakeBroker) {
	q := newFakeQueries(quota)
	b := &fakeBroker{}
	emitter := audit.NewEmitter(b, "audit-queue")
	e := NewEngine(q, storage.NewMemoryStorage(), b, emitter, "upload-queue", "status-queue", storage.MinPartSize)
	return e, q, b
}

func TestDirectUpload_Succeeds(t *testing.T) {
	e, _, b := newTestEngine(10_000_000)
	ownerID := uuid.New()

	objectName, err := e.DirectUpload(context.Background(), ownerID, "movie.mp4", bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	assert.NotEmpty(t, objectName)
	assert.Len(t, b.messages, 2, "expects an upload-queue message and a status-queue message")
}

func TestDirectUpload_QuotaExceededCompensates(t *testing.T) {
	e, q, b := newTestEngine(5)
	ownerID := uuid.New()

	_, err := e.DirectUpload(context.Background(), ownerID, "movie.mp4", bytes.NewReader([]byte("hello world")))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.ErrQuotaExceeded))
	assert.Empty(t, q.completed, "the compensating delete should remove the completed-upload row")
	require.Len(t, b.messages, 1, "only the quota-exceeded audit event is emitted; no upload is announced")
	auditMsg, ok := b.messages[0].(audit.Message)
	require.True(t, ok, "the single message should be the audit event")
	assert.Equal(t, audit.EventQuotaExceeded, auditMsg.EventType)
}

func TestChunkedUpload_FullLifecycle(t *testing.T) {
	e, _, b := newTestEngine(10_000_000)
	ownerID := uuid.New()

	objectName, chunkSize, err := e.InitChunkUpload(context.Background(), ownerID, "movie.mp4", 20, "none")
	require.NoError(t, err)
	assert.Equal(t, int64(storage.MinPartSize), chunkSize)

	require.NoError(t, e.UploadChunk(context.Background(), ownerID, objectName, 1, []byte("first-chunk-")))
	require.NoError(t, e.UploadChunk(context.Background(), ownerID, objectName, 2, []byte("second-chunk")))

	require.NoError(t, e.CompleteChunkUpload(context.Background(), ownerID, objectName, "movie.mp4", nil))
	assert.Len(t, b.messages, 2)
}

func TestChunkedUpload_RejectsEmptyChunk(t *testing.T) {
	e, _, _ := newTestEngine(10_000_000)
	ownerID := uuid.New()

	objectName, _, err := e.InitChunkUpload(context.Background(), ownerID, "movie.mp4", 20, "none")
	require.NoError(t, err)

	err = e.UploadChunk(context.Background(), ownerID, objectName, 1, nil)
	assert.True(t, apperror.Is(err, apperror.ErrInputInvalid))
}

func TestChunkedUpload_QuotaExceededAbortsAndDeletes(t *testing.T) {
	e, q, _ := newTestEngine(10)
	ownerID := uuid.New()

	objectName, _, err := e.InitChunkUpload(context.Background(), ownerID, "movie.mp4", 5, "none")
	require.NoError(t, err)

	err = e.UploadChunk(context.Background(), ownerID, objectName, 1, []byte("this-chunk-is-too-big"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.ErrQuotaExceeded))
	_, stillActive := q.chunkUploads[objectName]
	assert.False(t, stillActive, "the upload row should have been deleted on abort")
}

func TestChunkedUpload_CompleteRejectsGapInPartNumbers(t *testing.T) {
	e, _, _ := newTestEngine(10_000_000)
	ownerID := uuid.New()

	objectName, _, err := e.InitChunkUpload(context.Background(), ownerID, "movie.mp4", 20, "none")
	require.NoError(t, err)

	require.NoError(t, e.UploadChunk(context.Background(), ownerID, objectName, 1, []byte("first-chunk-")))
	require.NoError(t, e.UploadChunk(context.Background(), ownerID, objectName, 3, []byte("third-chunk-")))

	err = e.CompleteChunkUpload(context.Background(), ownerID, objectName, "movie.mp4", nil)
	assert.True(t, apperror.Is(err, apperror.ErrInputInvalid))
}
