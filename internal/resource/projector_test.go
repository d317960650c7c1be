package resource

import (
	"context"
	"testing"

	"github.com/Valtis/videosite/internal/db"
	"github.com/Valtis/videosite/internal/webhook"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	resources map[string]db.Resource
	video     []db.InsertVideoMetadataParams
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{resources: map[string]db.Resource{}}
}

func (f *fakeQuerier) CreateResource(ctx context.Context, arg db.CreateResourceParams) error {
	key := db.UUIDToString(arg.ID)
	if _, exists := f.resources[key]; exists {
		return nil
	}
	f.resources[key] = db.Resource{
		ID:      arg.ID,
		OwnerID: arg.OwnerID,
		Name:    arg.Name,
		Type:    db.ResourceTypeUnknown,
		Status:  db.ResourceStatusPending,
	}
	return nil
}

func (f *fakeQuerier) GetResource(ctx context.Context, id pgtype.UUID) (db.Resource, error) {
	r, ok := f.resources[db.UUIDToString(id)]
	if !ok {
		return db.Resource{}, assert.AnError
	}
	return r, nil
}

func (f *fakeQuerier) UpdateResourceStatus(ctx context.Context, id pgtype.UUID, status db.ResourceStatus) (bool, error) {
	key := db.UUIDToString(id)
	r, ok := f.resources[key]
	if !ok {
		return false, assert.AnError
	}
	if !db.IsForwardOrSame(r.Status, status) {
		return false, nil
	}
	r.Status = status
	f.resources[key] = r
	return true, nil
}

func (f *fakeQuerier) UpdateResourceType(ctx context.Context, id pgtype.UUID, rtype db.ResourceType) error {
	key := db.UUIDToString(id)
	r, ok := f.resources[key]
	if !ok {
		return assert.AnError
	}
	r.Type = rtype
	f.resources[key] = r
	return nil
}

func (f *fakeQuerier) InsertVideoMetadata(ctx context.Context, arg db.InsertVideoMetadataParams) error {
	f.video = append(f.video, arg)
	return nil
}

type fakeDispatcher struct {
	events []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, ownerID uuid.UUID, event *webhook.Event) error {
	f.events = append(f.events, event.Type)
	return nil
}

func TestProjector_UploadedThenProcessed(t *testing.T) {
	ctx := context.Background()
	q := newFakeQuerier()
	dispatcher := &fakeDispatcher{}
	p := NewProjector(q, dispatcher)

	objectName := uuid.New().String()
	ownerID := uuid.New().String()

	require.NoError(t, p.Apply(ctx, StatusMessage{
		Status:     StatusUploaded,
		ObjectName: objectName,
		UserID:     ownerID,
		FileName:   "clip.mp4",
	}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusProcessing, ObjectName: objectName}))
	require.NoError(t, p.Apply(ctx, StatusMessage{
		Status:       StatusTypeResolved,
		ObjectName:   objectName,
		ResourceType: "video",
	}))
	require.NoError(t, p.Apply(ctx, StatusMessage{
		Status:     StatusProcessed,
		ObjectName: objectName,
		Metadata: &MetadataUnion{
			Video: []VideoRendition{{Width: 1280, Height: 720, DurationSeconds: 12.5, BitRate: 5_000_000, FrameRate: 60}},
		},
	}))

	r := q.resources[objectName]
	assert.Equal(t, db.ResourceStatusProcessed, r.Status)
	assert.Equal(t, db.ResourceTypeVideo, r.Type)
	assert.Len(t, q.video, 1)
	assert.Equal(t, []string{
		webhook.EventResourceUploaded,
		webhook.EventResourceProcessing,
		webhook.EventResourceProcessing,
		webhook.EventResourceProcessed,
	}, dispatcher.events)
}

func TestProjector_RedeliveredProcessedMessageDoesNotDuplicateMetadata(t *testing.T) {
	ctx := context.Background()
	q := newFakeQuerier()
	dispatcher := &fakeDispatcher{}
	p := NewProjector(q, dispatcher)

	objectName := uuid.New().String()
	ownerID := uuid.New().String()

	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusUploaded, ObjectName: objectName, UserID: ownerID, FileName: "clip.mp4"}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusProcessing, ObjectName: objectName}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusTypeResolved, ObjectName: objectName, ResourceType: "video"}))

	processed := StatusMessage{
		Status:     StatusProcessed,
		ObjectName: objectName,
		Metadata: &MetadataUnion{
			Video: []VideoRendition{
				{Width: 1280, Height: 720, DurationSeconds: 12.5, BitRate: 5_000_000, FrameRate: 60},
				{Width: 640, Height: 360, DurationSeconds: 12.5, BitRate: 1_000_000, FrameRate: 30},
			},
		},
	}

	require.NoError(t, p.Apply(ctx, processed))
	assert.Len(t, q.video, 2)

	dispatcher.events = nil
	require.NoError(t, p.Apply(ctx, processed))

	assert.Len(t, q.video, 2, "redelivered processed message must not re-insert video metadata rows")
	assert.Empty(t, dispatcher.events, "redelivered processed message must not re-dispatch a webhook")
}

func TestProjector_RejectsBackwardTransition(t *testing.T) {
	ctx := context.Background()
	q := newFakeQuerier()
	dispatcher := &fakeDispatcher{}
	p := NewProjector(q, dispatcher)

	objectName := uuid.New().String()
	ownerID := uuid.New().String()

	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusUploaded, ObjectName: objectName, UserID: ownerID, FileName: "a.mp4"}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusProcessing, ObjectName: objectName}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusTypeResolved, ObjectName: objectName, ResourceType: "video"}))

	dispatcher.events = nil
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusProcessing, ObjectName: objectName}))

	assert.Equal(t, db.ResourceStatusTypeResolved, q.resources[objectName].Status)
	assert.Empty(t, dispatcher.events)
}

func TestProjector_FailedIsTerminalFromAnyState(t *testing.T) {
	ctx := context.Background()
	q := newFakeQuerier()
	dispatcher := &fakeDispatcher{}
	p := NewProjector(q, dispatcher)

	objectName := uuid.New().String()
	ownerID := uuid.New().String()

	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusUploaded, ObjectName: objectName, UserID: ownerID, FileName: "a.mp4"}))
	require.NoError(t, p.Apply(ctx, StatusMessage{Status: StatusFailed, ObjectName: objectName}))

	assert.Equal(t, db.ResourceStatusFailed, q.resources[objectName].Status)
}

func TestProjector_MalformedObjectNameIsNonRetryable(t *testing.T) {
	ctx := context.Background()
	q := newFakeQuerier()
	p := NewProjector(q, &fakeDispatcher{})

	err := p.Apply(ctx, StatusMessage{Status: StatusUploaded, ObjectName: "not-a-uuid"})
	require.Error(t, err)
}
