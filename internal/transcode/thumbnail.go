package transcode

import (
	"fmt"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// thumbnailOffsetSeconds is where the preview frame is grabbed from. A fixed
// early offset avoids decoding the whole file just to pick a frame, and
// is far enough in to skip a black leading frame on most sources.
const thumbnailOffsetSeconds = 1

// extractThumbnail grabs a single JPEG frame near the start of the source.
// Unlike the HLS ladder's split/scale/fps filter_complex graph, a one-shot
// frame grab fits ffmpeg-go's declarative input/output builder, so it is
// used here instead of another hand-built exec.Command invocation.
func extractThumbnail(inputPath, workDir string) (string, error) {
	outputPath := filepath.Join(workDir, "thumbnail.jpg")

	err := ffmpeg.Input(inputPath, ffmpeg.KwArgs{"ss": thumbnailOffsetSeconds}).
		Output(outputPath, ffmpeg.KwArgs{"vframes": 1, "q:v": 2}).
		OverWriteOutput().
		Run()
	if err != nil {
		return "", fmt.Errorf("extract thumbnail: %w", err)
	}
	return outputPath, nil
}
