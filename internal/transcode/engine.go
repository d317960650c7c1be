// Package transcode derives the HLS rendition ladder for a source video and
// drives the ffmpeg invocation that produces it, grounded on the original
// transcoding service's construct_video_transcoding_options_for_ffmpeg and
// transcode_video.
package transcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/probe"
	"github.com/Valtis/videosite/internal/resource"
	"github.com/Valtis/videosite/internal/storage"
	ffprobe "gopkg.in/vansante/go-ffprobe.v2"
)

// Broker is the subset of the job-queue broker the transcode worker emits
// status updates through.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

// statusUpdate mirrors the status-queue wire shape for a processed or
// failed transition, reusing resource's typed metadata union so the
// completion payload the projector decodes matches exactly.
type statusUpdate struct {
	Status     string                  `json:"status"`
	ObjectName string                  `json:"object_name"`
	Metadata   *resource.MetadataUnion `json:"metadata,omitempty"`
}

type Engine struct {
	ffmpegPath  string
	ffprobePath string
	httpClient  *http.Client
	storage     storage.Storage
	broker      Broker
	statusQueue string
}

func NewEngine(ffmpegPath, ffprobePath string, httpClient *http.Client, store storage.Storage, broker Broker, statusQueue string) *Engine {
	ffprobe.SetFFProbeBinPath(ffprobePath)
	return &Engine{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		httpClient:  httpClient,
		storage:     store,
		broker:      broker,
		statusQueue: statusQueue,
	}
}

// Transcode handles one video-queue message end to end: download, probe,
// ladder derivation, ffmpeg HLS encode, upload, and the resulting
// status-queue event. Once the scratch directory exists, failures at any
// stage are terminal — mirroring the original service, which always deletes
// the queue message and reports "failed" rather than retrying a transcode.
// The errors it returns are a failure to create the scratch directory
// (ErrTransient) and a failure to enqueue the status-queue event.
func (e *Engine) Transcode(ctx context.Context, msg probe.VideoProcessingMessage) error {
	log := logger.FromContext(ctx).With("object_name", msg.ObjectName)

	workDir, err := os.MkdirTemp("", "transcode-*")
	if err != nil {
		// A scratch-directory failure is a host-level problem (disk full,
		// permissions), not a defect in this message — worth retrying on
		// another worker rather than marking the resource permanently failed.
		return apperror.Wrap(fmt.Errorf("create work directory: %w", err), apperror.ErrTransient)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	inputPath := filepath.Join(workDir, "input")
	if err := e.downloadInput(ctx, msg.PresignedURL, inputPath); err != nil {
		log.Error("download input failed", "error", err)
		return e.fail(msg.ObjectName)
	}

	source, err := e.probeSource(ctx, inputPath, msg)
	if err != nil {
		log.Warn("source re-probe failed, falling back to metadata worker's descriptor", "error", err)
	}

	plans := DeriveLadder(source)
	if len(plans) == 0 {
		log.Error("no renditions derivable from source", "width", source.Width, "height", source.Height)
		return e.fail(msg.ObjectName)
	}

	if err := e.runFFmpeg(ctx, workDir, inputPath, plans, msg.Audio != nil); err != nil {
		log.Error("ffmpeg transcode failed", "error", err)
		return e.fail(msg.ObjectName)
	}

	if _, err := extractThumbnail(inputPath, workDir); err != nil {
		// A missing preview frame is not worth failing the whole transcode
		// over; the HLS renditions are already encoded and usable.
		log.Warn("thumbnail extraction failed", "error", err)
	}

	// The input file is removed before upload so the output-tree walk below
	// never has to filter it out, matching the original service's ordering.
	if err := os.Remove(inputPath); err != nil {
		log.Warn("failed to remove input file after encode", "error", err)
	}

	if err := e.uploadOutputTree(ctx, workDir, msg.ObjectName); err != nil {
		log.Error("upload of transcoded output failed", "error", err)
		return e.fail(msg.ObjectName)
	}

	renditions := make([]resource.VideoRendition, len(plans))
	for i, plan := range plans {
		renditions[i] = resource.VideoRendition{
			Width:           int32(plan.Width),
			Height:          int32(plan.Height),
			DurationSeconds: msg.Video.DurationSeconds,
			BitRate:         plan.VideoBitrate,
			FrameRate:       plan.FPS,
		}
	}

	return e.enqueueStatus(statusUpdate{
		Status:     "processed",
		ObjectName: msg.ObjectName,
		Metadata:   &resource.MetadataUnion{Video: renditions},
	})
}

func (e *Engine) fail(objectName string) error {
	return e.enqueueStatus(statusUpdate{Status: "failed", ObjectName: objectName})
}

func (e *Engine) enqueueStatus(update statusUpdate) error {
	_, err := e.broker.Enqueue(e.statusQueue, update)
	return err
}

// downloadInput fetches the presigned URL to a scratch file before invoking
// ffmpeg against it. Streaming presigned URLs directly into ffmpeg was
// observed by the original service to fail intermittently with IO errors;
// downloading first is more reliable.
func (e *Engine) downloadInput(ctx context.Context, presignedURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download input: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download input: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	return nil
}

// probeSource re-probes the downloaded file with ffprobe for the
// authoritative source dimensions/framerate/bitrate the ladder derives from,
// since the metadata worker's descriptor was computed against the presigned
// URL and may not reflect exactly what ffmpeg sees locally. On any ffprobe
// failure it falls back to the upstream VideoProcessingMessage's descriptor.
func (e *Engine) probeSource(ctx context.Context, path string, msg probe.VideoProcessingMessage) (Source, error) {
	fallback := Source{
		Width:        int(msg.Video.Width),
		Height:       int(msg.Video.Height),
		FPS:          msg.Video.FrameRate,
		VideoBitrate: msg.Video.BitRate,
	}
	if msg.Audio != nil {
		fallback.AudioBitrate = msg.Audio.BitRate
	}

	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return fallback, err
	}

	videoStream := data.FirstVideoStream()
	if videoStream == nil {
		return fallback, fmt.Errorf("ffprobe found no video stream")
	}

	src := fallback
	src.Width = videoStream.Width
	src.Height = videoStream.Height
	if fps, err := parseFrameRate(videoStream.RFrameRate); err == nil && fps > 0 {
		src.FPS = fps
	}
	if bitRate, err := strconv.ParseInt(videoStream.BitRate, 10, 64); err == nil && bitRate > 0 {
		src.VideoBitrate = bitRate
	}

	if audioStream := data.FirstAudioStream(); audioStream != nil {
		if bitRate, err := strconv.ParseInt(audioStream.BitRate, 10, 64); err == nil && bitRate > 0 {
			src.AudioBitrate = bitRate
		}
	}

	return src, nil
}

// parseFrameRate parses ffprobe's rational frame rate notation ("30000/1001").
func parseFrameRate(s string) (float64, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return strconv.ParseFloat(s, 64)
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return num / den, nil
}

// runFFmpeg invokes the ffmpeg binary with the derived ladder's arguments,
// streaming stdout/stderr line by line the way the original service's
// run_ffmpeg did with its tokio::select! loop, so a long-running encode's
// progress is visible in logs rather than buffered until exit.
func (e *Engine) runFFmpeg(ctx context.Context, workDir, inputPath string, plans []RenditionPlan, hasAudio bool) error {
	args := buildFFmpegArgs(inputPath, plans, hasAudio)
	log := logger.FromContext(ctx)
	log.Info("running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Dir = workDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attach stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan struct{}, 2)
	go streamLines(stdout, func(line string) { log.Info(line) }, done)
	go streamLines(stderr, func(line string) { log.Debug(line) }, done)
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg exited with error: %w", err)
	}
	return nil
}

func streamLines(r io.Reader, emit func(string), done chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	done <- struct{}{}
}

// uploadOutputTree walks the HLS output directory (master playlist, and one
// level of stream_N subdirectories holding per-rendition playlists and
// segments) and uploads every file under resource/{objectName}/..., matching
// the original service's list_files_for_uploading/upload_file.
func (e *Engine) uploadOutputTree(ctx context.Context, workDir, objectName string) error {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return fmt.Errorf("read work directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(workDir, entry.Name())
		if entry.IsDir() {
			subEntries, err := os.ReadDir(path)
			if err != nil {
				return fmt.Errorf("read output subdirectory %s: %w", entry.Name(), err)
			}
			for _, sub := range subEntries {
				if sub.IsDir() {
					continue
				}
				subPath := filepath.Join(path, sub.Name())
				key := fmt.Sprintf("resource/%s/%s/%s", objectName, entry.Name(), sub.Name())
				if err := e.uploadFile(ctx, subPath, key); err != nil {
					return err
				}
			}
			continue
		}
		key := fmt.Sprintf("resource/%s/%s", objectName, entry.Name())
		if err := e.uploadFile(ctx, path, key); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) uploadFile(ctx context.Context, path, key string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	uploadID, err := e.storage.NewMultipartUpload(ctx, key, contentTypeFor(path))
	if err != nil {
		return fmt.Errorf("begin upload %s: %w", key, err)
	}

	etag, err := e.storage.PutObjectPart(ctx, key, uploadID, 1, file, info.Size())
	if err != nil {
		_ = e.storage.AbortMultipartUpload(ctx, key, uploadID)
		return fmt.Errorf("upload part %s: %w", key, err)
	}

	if _, err := e.storage.CompleteMultipartUpload(ctx, key, uploadID, []storage.Part{{PartNumber: 1, ETag: etag}}); err != nil {
		return fmt.Errorf("complete upload %s: %w", key, err)
	}
	return nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
