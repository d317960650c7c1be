package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Valtis/videosite/internal/presets"
)

const (
	videoCodec = "libx264"
	audioCodec = "aac"
)

// buildFFmpegArgs constructs the -filter_complex split/scale/fps ladder and
// the per-rendition HLS mapping, grounded on the original transcoding
// service's construct_video_transcoding_options_for_ffmpeg /
// construct_transcoding_options_with_parameters. Unlike that implementation,
// which builds one shell string and shlex-splits it, this returns the
// exec.Cmd argument slice directly.
func buildFFmpegArgs(inputPath string, plans []RenditionPlan, hasAudio bool) []string {
	args := []string{"-i", inputPath, "-filter_complex", buildFilterComplex(plans)}

	for i, plan := range plans {
		args = append(args, renditionMapArgs(i, plan)...)
	}

	if hasAudio {
		for i, plan := range plans {
			args = append(args,
				"-map", "a:0",
				"-c:a:"+strconv.Itoa(i), audioCodec,
				"-b:a:"+strconv.Itoa(i), kbps(plan.AudioBitrate),
				"-ac:"+strconv.Itoa(i), strconv.Itoa(plan.AudioChannels),
			)
		}
	}

	args = append(args,
		"-f", "hls",
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_type", "mpegts",
		"-hls_segment_filename", "stream_%v/data%04d.ts",
		"-master_pl_name", "master.m3u8",
		"-var_stream_map", varStreamMap(len(plans), hasAudio),
		"stream_%v/playlist.m3u8",
	)

	return args
}

func buildFilterComplex(plans []RenditionPlan) string {
	var splits strings.Builder
	for i := range plans {
		fmt.Fprintf(&splits, "[v%din]", i)
	}

	var filter strings.Builder
	fmt.Fprintf(&filter, "[0:v]split=%d%s;", len(plans), splits.String())
	for i, plan := range plans {
		fmt.Fprintf(&filter, "[v%din]scale=%d:%d[v%dfps];[v%dfps]fps=%d[v%dout];",
			i, plan.Width, plan.Height, i, i, int(plan.FPS), i)
	}
	return filter.String()
}

// renditionMapArgs builds the -map/-c:v/-b:v ladder for one rendition. The
// keyframe-forcing settings are repeated here, not just set once, because
// the original service observed that the encoder does not otherwise place
// keyframes reliably on the 5-second boundary HLS segmentation needs.
func renditionMapArgs(i int, plan RenditionPlan) []string {
	idx := strconv.Itoa(i)
	gop := strconv.Itoa(plan.GOPSize)
	return []string{
		"-map", fmt.Sprintf("[v%dout]", i),
		"-c:v:" + idx, videoCodec,
		"-b:v:" + idx, kbps(plan.VideoBitrate),
		"-maxrate:v:" + idx, kbps(plan.MaxBitrate),
		"-bufsize:v:" + idx, kbps(plan.BufSize),
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-force_key_frames", "expr:gte(t,n_forced*5)",
		"-hls_time", strconv.Itoa(presets.SegmentSeconds),
		"-map_metadata", "-1",
	}
}

func varStreamMap(count int, hasAudio bool) string {
	pairs := make([]string, count)
	for i := range pairs {
		if hasAudio {
			pairs[i] = fmt.Sprintf("v:%d,a:%d", i, i)
		} else {
			pairs[i] = fmt.Sprintf("v:%d", i)
		}
	}
	return strings.Join(pairs, " ")
}

// kbps renders a bits-per-second value the way the original service did:
// dividing by 1024 and appending ffmpeg's "k" suffix.
func kbps(bitsPerSecond int64) string {
	return strconv.FormatInt(bitsPerSecond/1024, 10) + "k"
}
