package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveLadder_SmallSourceOnlyGets144p(t *testing.T) {
	plans := DeriveLadder(Source{Width: 320, Height: 180, FPS: 30, VideoBitrate: 400_000, AudioBitrate: 128_000})
	require.Len(t, plans, 1)
	assert.Equal(t, "144p", plans[0].Name)
	assert.Equal(t, 256, plans[0].Width)
	assert.Equal(t, 144, plans[0].Height)
}

func TestDeriveLadder_FullHDSourceGetsAllRungs(t *testing.T) {
	plans := DeriveLadder(Source{Width: 1920, Height: 1080, FPS: 60, VideoBitrate: 10_000_000, AudioBitrate: 192_000})
	require.Len(t, plans, 5)
	assert.Equal(t, "1080p", plans[len(plans)-1].Name)

	top := plans[len(plans)-1]
	assert.Equal(t, 1920, top.Width)
	assert.Equal(t, 1080, top.Height)
	assert.Equal(t, 60.0, top.FPS)
	assert.Equal(t, int64(8_000_000*1.5), top.VideoBitrate, "fps>=45 applies the 1.5x bitrate multiplier")
	assert.Equal(t, int64(128_000), top.AudioBitrate)
	assert.Equal(t, 2, top.AudioChannels)
}

func TestDeriveLadder_PreservesAspectRatio(t *testing.T) {
	plans := DeriveLadder(Source{Width: 2560, Height: 1440, FPS: 30, VideoBitrate: 20_000_000})
	for _, p := range plans {
		if p.Name == "480p" {
			assert.Equal(t, 854, p.Width)
			assert.Equal(t, 481, p.Height) // 854 / (16/9) = 480.375, rounded up
		}
	}
}

func TestDeriveLadder_CapsBitrateAndBuffersByTarget(t *testing.T) {
	plans := DeriveLadder(Source{Width: 640, Height: 360, FPS: 30, VideoBitrate: 50_000_000})
	for _, p := range plans {
		assert.Equal(t, int64(float64(p.VideoBitrate)*1.5), p.MaxBitrate)
		assert.Equal(t, p.VideoBitrate*2, p.BufSize)
		assert.Equal(t, int(p.FPS)*5, p.GOPSize)
	}
}

func TestDeriveLadder_LowBitrateSourceIsNotUpscaled(t *testing.T) {
	plans := DeriveLadder(Source{Width: 1920, Height: 1080, FPS: 30, VideoBitrate: 100_000, AudioBitrate: 64_000})
	require.NotEmpty(t, plans)
	for _, p := range plans {
		assert.LessOrEqual(t, p.VideoBitrate, int64(100_000))
		assert.Equal(t, int64(64_000), p.AudioBitrate)
	}
}

func TestDeriveLadder_InvalidSourceReturnsNil(t *testing.T) {
	assert.Nil(t, DeriveLadder(Source{Width: 0, Height: 0}))
}
