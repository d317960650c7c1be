// Package transcode derives the HLS rendition ladder for a source video and
// drives the ffmpeg invocation that produces it, grounded on the original
// transcoding service's construct_video_transcoding_options_for_ffmpeg.
package transcode

import (
	"math"

	"github.com/Valtis/videosite/internal/presets"
)

// Source describes the properties of the fetched input file that the ladder
// derivation reads from.
type Source struct {
	Width         int
	Height        int
	FPS           float64
	VideoBitrate  int64 // bits per second
	AudioBitrate  int64 // bits per second, 0 if no audio track
}

// RenditionPlan is one derived output rung: everything ffmpeg needs to
// encode this rendition, plus the values the resource-processed status
// message reports back to the projector.
type RenditionPlan struct {
	Name          string
	Width         int
	Height        int
	FPS           float64
	VideoBitrate  int64 // target, bps
	MaxBitrate    int64
	BufSize       int64
	GOPSize       int
	AudioBitrate  int64
	AudioChannels int
}

// DeriveLadder computes the set of renditions to encode for a source,
// applying the fixed-rung inclusion/derivation rules: 144p is always
// included; a higher rung is included only if the source is at least as
// wide as the rung. Per-rung width and fps are capped by both the rung's
// ceiling and the source's own properties, and so is the bitrate before it
// is raised 1.5x for a target fps of 45 or more. Height is the capped width
// over the source's aspect ratio, rounded up, and is not capped by the
// rung's nominal height.
func DeriveLadder(src Source) []RenditionPlan {
	if src.Width <= 0 || src.Height <= 0 {
		return nil
	}
	aspect := float64(src.Width) / float64(src.Height)

	var plans []RenditionPlan
	for _, rung := range presets.Ladder {
		if rung.Name != "144p" && src.Width < rung.Width {
			continue
		}
		plans = append(plans, deriveRendition(rung, src, aspect))
	}
	return plans
}

func deriveRendition(rung presets.Rung, src Source, aspect float64) RenditionPlan {
	width := rung.Width
	if src.Width < width {
		width = src.Width
	}
	height := int(math.Ceil(float64(width) / aspect))

	fps := float64(rung.FPSCap)
	if src.FPS > 0 && src.FPS < fps {
		fps = src.FPS
	}

	bitrate := rung.BitrateCap
	if src.VideoBitrate > 0 && src.VideoBitrate < bitrate {
		bitrate = src.VideoBitrate
	}
	if fps >= 45 {
		bitrate = int64(float64(bitrate) * 1.5)
	}

	audioBitrate := int64(presets.MaxAudioBitrate)
	if src.AudioBitrate > 0 && src.AudioBitrate < audioBitrate {
		audioBitrate = src.AudioBitrate
	}

	gop := int(fps) * presets.SegmentSeconds

	return RenditionPlan{
		Name:          rung.Name,
		Width:         width,
		Height:        height,
		FPS:           fps,
		VideoBitrate:  bitrate,
		MaxBitrate:    int64(float64(bitrate) * 1.5),
		BufSize:       bitrate * 2,
		GOPSize:       gop,
		AudioBitrate:  audioBitrate,
		AudioChannels: presets.AudioChannels,
	}
}
