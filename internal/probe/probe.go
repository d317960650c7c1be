// Package probe implements the metadata worker: it shells out to mediainfo
// against a presigned URL and classifies the object as video, audio, image,
// or other, grounded on the original metadata service's
// discover_filetype_and_metadata/create_metadata_object.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/Valtis/videosite/internal/logger"
)

// Broker is the subset of the job-queue broker the probe emits to.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

// ScanQueueMessage is the scan-queue message consumed by this stage.
type ScanQueueMessage struct {
	PresignedURL string `json:"presigned_url"`
	ObjectName   string `json:"object_name"`
}

// VideoDescriptor mirrors the original VideoData: numeric fields default to
// zero on parse failure rather than failing the probe outright, since
// MediaInfo reports every field as a string and the occasional malformed
// or missing value should not abort classification.
type VideoDescriptor struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int32   `json:"width"`
	Height          int32   `json:"height"`
	BitRate         int64   `json:"bit_rate"`
	FrameRate       float64 `json:"frame_rate"`
}

type AudioDescriptor struct {
	DurationSeconds float64 `json:"duration_seconds"`
	BitRate         int64   `json:"bit_rate"`
	SampleRate      int32   `json:"sample_rate"`
}

type ImageDescriptor struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// VideoProcessingMessage is handed to the transcode worker; Audio is
// optional since a video track's companion audio track is not guaranteed
// to exist.
type VideoProcessingMessage struct {
	PresignedURL string           `json:"presigned_url"`
	ObjectName   string           `json:"object_name"`
	Video        VideoDescriptor  `json:"video"`
	Audio        *AudioDescriptor `json:"audio,omitempty"`
}

type AudioProcessingMessage struct {
	PresignedURL string          `json:"presigned_url"`
	ObjectName   string          `json:"object_name"`
	Audio        AudioDescriptor `json:"audio"`
}

type ImageProcessingMessage struct {
	PresignedURL string          `json:"presigned_url"`
	ObjectName   string          `json:"object_name"`
	Image        ImageDescriptor `json:"image"`
}

// statusUpdate mirrors the status-queue wire shape for a type_resolved or
// failed transition.
type statusUpdate struct {
	Status       string `json:"status"`
	ObjectName   string `json:"object_name"`
	ResourceType string `json:"resource_type,omitempty"`
}

type Engine struct {
	mediaInfoPath string
	broker        Broker
	videoQueue    string
	audioQueue    string
	imageQueue    string
	statusQueue   string
}

func NewEngine(mediaInfoPath string, broker Broker, videoQueue, audioQueue, imageQueue, statusQueue string) *Engine {
	return &Engine{
		mediaInfoPath: mediaInfoPath,
		broker:        broker,
		videoQueue:    videoQueue,
		audioQueue:    audioQueue,
		imageQueue:    imageQueue,
		statusQueue:   statusQueue,
	}
}

// Probe handles one scan-queue message. A mediainfo invocation or parse
// failure is not treated as a retryable error: it is folded into the
// "other" classification and routed to status-queue(failed), matching the
// original service's unwrap_or_else(FileType::Other) fallback — a source
// file mediainfo cannot parse will never parse on redelivery either.
func (e *Engine) Probe(ctx context.Context, msg ScanQueueMessage) error {
	info, err := e.runMediaInfo(ctx, msg.PresignedURL)
	if err != nil {
		logger.FromContext(ctx).Warn("mediainfo probe failed, classifying as other", "object_name", msg.ObjectName, "error", err)
		return e.emitOther(msg)
	}

	video, companionAudio, audio, image := classify(info)
	switch {
	case video != nil:
		if err := e.enqueue(e.videoQueue, VideoProcessingMessage{PresignedURL: msg.PresignedURL, ObjectName: msg.ObjectName, Video: *video, Audio: companionAudio}); err != nil {
			return err
		}
		return e.emitTypeResolved(msg, "video")
	case audio != nil:
		if err := e.enqueue(e.audioQueue, AudioProcessingMessage{PresignedURL: msg.PresignedURL, ObjectName: msg.ObjectName, Audio: *audio}); err != nil {
			return err
		}
		return e.emitTypeResolved(msg, "audio")
	case image != nil:
		if err := e.enqueue(e.imageQueue, ImageProcessingMessage{PresignedURL: msg.PresignedURL, ObjectName: msg.ObjectName, Image: *image}); err != nil {
			return err
		}
		return e.emitTypeResolved(msg, "image")
	default:
		return e.emitOther(msg)
	}
}

func (e *Engine) emitTypeResolved(msg ScanQueueMessage, resourceType string) error {
	return e.enqueue(e.statusQueue, statusUpdate{Status: "type_resolved", ObjectName: msg.ObjectName, ResourceType: resourceType})
}

func (e *Engine) emitOther(msg ScanQueueMessage) error {
	return e.enqueue(e.statusQueue, statusUpdate{Status: "failed", ObjectName: msg.ObjectName})
}

func (e *Engine) enqueue(queue string, payload any) error {
	_, err := e.broker.Enqueue(queue, payload)
	return err
}

// mediaInfoOutput is the root of mediainfo's --Output=JSON document: a flat
// list of tracks distinguished by an "@type" discriminator, since every
// field in that format is reported as a string regardless of its logical
// type.
type mediaInfoOutput struct {
	Media struct {
		Track []json.RawMessage `json:"track"`
	} `json:"media"`
}

type trackHeader struct {
	Type string `json:"@type"`
}

type generalTrack struct {
	VideoCount string `json:"VideoCount"`
	AudioCount string `json:"AudioCount"`
	ImageCount string `json:"ImageCount"`
}

type videoTrack struct {
	Width     string `json:"Width"`
	Height    string `json:"Height"`
	Duration  string `json:"Duration"`
	FrameRate string `json:"FrameRate"`
	BitRate   string `json:"BitRate"`
}

type audioTrack struct {
	Duration     string `json:"Duration"`
	BitRate      string `json:"BitRate"`
	SamplingRate string `json:"SamplingRate"`
}

type imageTrack struct {
	Width  string `json:"Width"`
	Height string `json:"Height"`
}

// runMediaInfo invokes the external tool directly against the presigned
// URL; mediainfo fetches the object itself, so nothing is downloaded here.
func (e *Engine) runMediaInfo(ctx context.Context, presignedURL string) (*mediaInfoOutput, error) {
	cmd := exec.CommandContext(ctx, e.mediaInfoPath, "--Output=JSON", presignedURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &mediaInfoError{cause: err, stderr: stderr.String()}
	}

	var out mediaInfoOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &mediaInfoError{cause: err}
	}
	return &out, nil
}

type mediaInfoError struct {
	cause  error
	stderr string
}

func (e *mediaInfoError) Error() string {
	if e.stderr != "" {
		return e.cause.Error() + ": " + e.stderr
	}
	return e.cause.Error()
}

func (e *mediaInfoError) Unwrap() error { return e.cause }

// classify implements the General-track v/a/i counting rule: video wins
// over audio wins over image, each requiring the matching typed track to
// actually be present. When the resolved kind is video, companionAudio
// carries the optional audio track alongside it; for every other kind it
// is nil. All four results nil means Other.
func classify(info *mediaInfoOutput) (video *VideoDescriptor, companionAudio *AudioDescriptor, audio *AudioDescriptor, image *ImageDescriptor) {
	if info == nil || len(info.Media.Track) == 0 {
		return nil, nil, nil, nil
	}

	var general *generalTrack
	var videoRaw, audioRaw, imageRaw json.RawMessage

	for _, raw := range info.Media.Track {
		var hdr trackHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			continue
		}
		switch hdr.Type {
		case "General":
			var g generalTrack
			if err := json.Unmarshal(raw, &g); err == nil {
				general = &g
			}
		case "Video":
			if videoRaw == nil {
				videoRaw = raw
			}
		case "Audio":
			if audioRaw == nil {
				audioRaw = raw
			}
		case "Image":
			if imageRaw == nil {
				imageRaw = raw
			}
		}
	}

	if general == nil {
		return nil, nil, nil, nil
	}

	videoCount := parseCount(general.VideoCount)
	audioCount := parseCount(general.AudioCount)
	imageCount := parseCount(general.ImageCount)

	switch {
	case videoCount > 0 && videoRaw != nil:
		var companion *AudioDescriptor
		if audioRaw != nil {
			companion = extractAudio(audioRaw)
		}
		return extractVideo(videoRaw), companion, nil, nil
	case audioCount > 0 && audioRaw != nil:
		return nil, nil, extractAudio(audioRaw), nil
	case imageCount > 0 && imageRaw != nil:
		return nil, nil, nil, extractImage(imageRaw)
	default:
		return nil, nil, nil, nil
	}
}

func parseCount(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt32(s string) int32 {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return int64(n)
}

func extractVideo(raw json.RawMessage) *VideoDescriptor {
	var t videoTrack
	_ = json.Unmarshal(raw, &t)
	return &VideoDescriptor{
		DurationSeconds: parseFloat(t.Duration),
		Width:           parseInt32(t.Width),
		Height:          parseInt32(t.Height),
		BitRate:         parseInt64(t.BitRate),
		FrameRate:       parseFloat(t.FrameRate),
	}
}

func extractAudio(raw json.RawMessage) *AudioDescriptor {
	var t audioTrack
	_ = json.Unmarshal(raw, &t)
	return &AudioDescriptor{
		DurationSeconds: parseFloat(t.Duration),
		BitRate:         parseInt64(t.BitRate),
		SampleRate:      parseInt32(t.SamplingRate),
	}
}

func extractImage(raw json.RawMessage) *ImageDescriptor {
	var t imageTrack
	_ = json.Unmarshal(raw, &t)
	return &ImageDescriptor{
		Width:  parseInt32(t.Width),
		Height: parseInt32(t.Height),
	}
}
