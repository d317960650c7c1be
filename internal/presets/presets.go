// Package presets holds the fixed HLS rendition ladder the transcoder
// derives each resource's rungs from, in the same named-table shape the
// teacher used for its image-resize presets.
package presets

// Rung is one fixed rendition in the ladder. Width, FPSCap and BitrateCap
// are caps, not targets: the transcoder derives per-resource values from the
// source that do not exceed them, except that the bitrate is raised 1.5x for
// a target fps of 45 or more. Height is the rung's nominal height; the
// transcoder derives rendition heights from the source's aspect ratio
// instead and does not read it.
type Rung struct {
	Name       string
	Width      int
	Height     int
	FPSCap     int
	BitrateCap int64 // bits per second
}

// Ladder is ordered lowest to highest; 144p is always included regardless of
// source resolution, per the rung-inclusion rule in the transcoder.
var Ladder = []Rung{
	{Name: "144p", Width: 256, Height: 144, FPSCap: 30, BitrateCap: 250_000},
	{Name: "270p", Width: 480, Height: 270, FPSCap: 30, BitrateCap: 750_000},
	{Name: "480p", Width: 854, Height: 480, FPSCap: 30, BitrateCap: 2_500_000},
	{Name: "720p", Width: 1280, Height: 720, FPSCap: 60, BitrateCap: 5_000_000},
	{Name: "1080p", Width: 1920, Height: 1080, FPSCap: 60, BitrateCap: 8_000_000},
}

// SegmentSeconds is the HLS segment duration and keyframe interval.
const SegmentSeconds = 5

// MaxAudioBitrate caps the single audio rendition per rung.
const MaxAudioBitrate = 128_000

// AudioChannels is the fixed output channel count for every audio rendition.
const AudioChannels = 2

func Get(name string) (Rung, bool) {
	for _, r := range Ladder {
		if r.Name == name {
			return r, true
		}
	}
	return Rung{}, false
}
