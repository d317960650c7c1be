package probe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T, raw string) *mediaInfoOutput {
	t.Helper()
	var out mediaInfoOutput
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return &out
}

const videoWithAudioFixture = `{
  "media": {
    "track": [
      {"@type": "General", "VideoCount": "1", "AudioCount": "1", "ImageCount": "0"},
      {"@type": "Video", "Width": "1920", "Height": "1080", "Duration": "12.5", "FrameRate": "30.000", "BitRate": "5000000"},
      {"@type": "Audio", "Duration": "12.5", "BitRate": "128000", "SamplingRate": "48000"}
    ]
  }
}`

const videoOnlyFixture = `{
  "media": {
    "track": [
      {"@type": "General", "VideoCount": "1", "AudioCount": "0", "ImageCount": "0"},
      {"@type": "Video", "Width": "1280", "Height": "720", "Duration": "30", "FrameRate": "60", "BitRate": "2000000"}
    ]
  }
}`

const audioOnlyFixture = `{
  "media": {
    "track": [
      {"@type": "General", "VideoCount": "0", "AudioCount": "1", "ImageCount": "0"},
      {"@type": "Audio", "Duration": "200", "BitRate": "192000", "SamplingRate": "44100"}
    ]
  }
}`

const imageOnlyFixture = `{
  "media": {
    "track": [
      {"@type": "General", "VideoCount": "0", "AudioCount": "0", "ImageCount": "1"},
      {"@type": "Image", "Width": "800", "Height": "600"}
    ]
  }
}`

const otherFixture = `{
  "media": {
    "track": [
      {"@type": "General", "VideoCount": "0", "AudioCount": "0", "ImageCount": "0"}
    ]
  }
}`

func TestClassify_VideoWithCompanionAudio(t *testing.T) {
	video, companion, audio, image := classify(parseFixture(t, videoWithAudioFixture))
	require.NotNil(t, video)
	require.NotNil(t, companion)
	assert.Nil(t, audio)
	assert.Nil(t, image)

	assert.Equal(t, int32(1920), video.Width)
	assert.Equal(t, int32(1080), video.Height)
	assert.Equal(t, 12.5, video.DurationSeconds)
	assert.Equal(t, float64(30), video.FrameRate)
	assert.Equal(t, int64(5000000), video.BitRate)

	assert.Equal(t, int64(128000), companion.BitRate)
	assert.Equal(t, int32(48000), companion.SampleRate)
}

func TestClassify_VideoWithoutAudio(t *testing.T) {
	video, companion, audio, image := classify(parseFixture(t, videoOnlyFixture))
	require.NotNil(t, video)
	assert.Nil(t, companion)
	assert.Nil(t, audio)
	assert.Nil(t, image)
}

func TestClassify_AudioOnly(t *testing.T) {
	video, companion, audio, image := classify(parseFixture(t, audioOnlyFixture))
	assert.Nil(t, video)
	assert.Nil(t, companion)
	require.NotNil(t, audio)
	assert.Nil(t, image)
	assert.Equal(t, int32(44100), audio.SampleRate)
}

func TestClassify_ImageOnly(t *testing.T) {
	video, companion, audio, image := classify(parseFixture(t, imageOnlyFixture))
	assert.Nil(t, video)
	assert.Nil(t, companion)
	assert.Nil(t, audio)
	require.NotNil(t, image)
	assert.Equal(t, int32(800), image.Width)
	assert.Equal(t, int32(600), image.Height)
}

func TestClassify_Other(t *testing.T) {
	video, companion, audio, image := classify(parseFixture(t, otherFixture))
	assert.Nil(t, video)
	assert.Nil(t, companion)
	assert.Nil(t, audio)
	assert.Nil(t, image)
}

func TestClassify_NoGeneralTrack(t *testing.T) {
	video, companion, audio, image := classify(&mediaInfoOutput{})
	assert.Nil(t, video)
	assert.Nil(t, companion)
	assert.Nil(t, audio)
	assert.Nil(t, image)
}

type fakeBroker struct {
	messages []brokerMessage
}

type brokerMessage struct {
	queue   string
	payload any
}

func (b *fakeBroker) Enqueue(jobType string, payload any) (string, error) {
	b.messages = append(b.messages, brokerMessage{queue: jobType, payload: payload})
	return "job-1", nil
}

func TestEngine_EmitTypeResolvedAndOther(t *testing.T) {
	b := &fakeBroker{}
	e := NewEngine("mediainfo", b, "video-queue", "audio-queue", "image-queue", "status-queue")

	require.NoError(t, e.emitTypeResolved(ScanQueueMessage{ObjectName: "obj-1"}, "video"))
	require.Len(t, b.messages, 1)
	assert.Equal(t, "status-queue", b.messages[0].queue)
	su, ok := b.messages[0].payload.(statusUpdate)
	require.True(t, ok)
	assert.Equal(t, "type_resolved", su.Status)
	assert.Equal(t, "video", su.ResourceType)

	b.messages = nil
	require.NoError(t, e.emitOther(ScanQueueMessage{ObjectName: "obj-2"}))
	require.Len(t, b.messages, 1)
	su, ok = b.messages[0].payload.(statusUpdate)
	require.True(t, ok)
	assert.Equal(t, "failed", su.Status)
	assert.Empty(t, su.ResourceType)
}
