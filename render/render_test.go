package render

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipforge/clipforge/speech"
)

func TestViralTierBuckets(t *testing.T) {
	assert.Equal(t, "high", ViralTier(0.9))
	assert.Equal(t, "high", ViralTier(0.75))
	assert.Equal(t, "medium", ViralTier(0.6))
	assert.Equal(t, "low", ViralTier(0.45))
	assert.Equal(t, "low", ViralTier(0.1))
}

func TestDimensionsRespectAspectRatioOverride(t *testing.T) {
	o := Options{TargetWidth: 640, TargetHeight: 480, AspectRatio: "9:16"}
	w, h := o.dimensions()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
}

func TestDimensionsFallBackToTargetWidthHeight(t *testing.T) {
	o := Options{TargetWidth: 1280, TargetHeight: 720}
	w, h := o.dimensions()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestBuildFilterGraphIncludesHookOverlayOnlyWhenEnabled(t *testing.T) {
	withHook := Options{HookEnabled: true, HookText: "watch this", HookDuration: 4}
	withoutHook := Options{HookEnabled: false, HookText: "watch this"}

	assert.Contains(t, buildFilterGraph(withHook, 20), "drawtext")
	assert.NotContains(t, buildFilterGraph(withoutHook, 20), "drawtext")
}

func TestAudioFilterGraphEmptyWhenSilenceRemovalDisabled(t *testing.T) {
	assert.Equal(t, "", audioFilterGraph(Options{SilenceRemoval: false}))
	assert.Contains(t, audioFilterGraph(Options{SilenceRemoval: true, SilenceDB: -35, MinSilence: 0.4, SilencePad: 0.05}), "silenceremove")
}

func TestWithoutOverlaysOrSilenceDisablesBoth(t *testing.T) {
	opts := Options{HookEnabled: true, SilenceRemoval: true}
	stripped := WithoutOverlaysOrSilence(opts)
	assert.False(t, stripped.HookEnabled)
	assert.False(t, stripped.SilenceRemoval)
}

func TestWriteCaptionsRebasesTimestampsToClipLocal(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/clip_001.captions"

	segments := []speech.Segment{
		{Start: 100, End: 103, Text: "hello there"},
		{Start: 104, End: 106, Text: "general kenobi"},
	}

	err := WriteCaptions(path, segments, 100, 110)
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "00:00:00,000 --> 00:00:03,000")
	assert.Contains(t, string(data), "hello there")
	assert.Contains(t, string(data), "general kenobi")
}

func TestFormatTimeProducesFfmpegSyntax(t *testing.T) {
	assert.Equal(t, "00:01:05.500", formatTime(65.5))
}
