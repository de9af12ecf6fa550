package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	p, err := FromEnv()
	require.NoError(t, err)

	// The hardware probe may raise concurrency above the CPU-only default
	// of 1 on accelerated hosts, but never below it.
	assert.GreaterOrEqual(t, p.ProcessingConcurrency, 1)
	assert.Equal(t, time.Second, p.ProcessingCooldown)
	assert.Equal(t, int64(2*1024*1024*1024), p.MaxSourceSizeBytes)
	assert.Equal(t, 3600.0, p.MaxSourceDurationSecs)
	assert.Equal(t, "medium", p.TranscriberModel)
	assert.Equal(t, 5, p.TranscriberBeam)
	assert.Equal(t, "auto", p.TranscriberLang)
	assert.True(t, p.TranscriberVAD)
	assert.True(t, p.HybridRetry)
	assert.Equal(t, 0.7, p.RetryThreshold)
	assert.Equal(t, 12.0, p.SceneThreshold)
	assert.Equal(t, 9.0, p.ClipMin)
	assert.Equal(t, 50.0, p.ClipMax)
	assert.Equal(t, 5, p.MinClipsFloor)
	assert.Equal(t, 20, p.MaxClips)
	assert.Equal(t, 0.08, p.MinViral)
	assert.Equal(t, "4M", p.VideoBitrate)
	assert.Equal(t, "192k", p.AudioBitrate)
	assert.True(t, p.HookEnabled)
	assert.Equal(t, 4.0, p.HookDuration)
	assert.False(t, p.SilenceRemoval)
	assert.Equal(t, -35.0, p.SilenceDB)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PROCESSING_CONCURRENCY", "3")
	t.Setenv("CLIP_MIN", "12")
	t.Setenv("MAX_SOURCE_SIZE", "512MiB")
	t.Setenv("PROCESSING_COOLDOWN", "250ms")
	t.Setenv("SILENCE_REMOVAL", "true")

	p, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, p.ProcessingConcurrency)
	assert.Equal(t, 12.0, p.ClipMin)
	assert.Equal(t, int64(512*1024*1024), p.MaxSourceSizeBytes)
	assert.Equal(t, 250*time.Millisecond, p.ProcessingCooldown)
	assert.True(t, p.SilenceRemoval)
}

func TestFromEnvRejectsClipMinBelowFiveSeconds(t *testing.T) {
	t.Setenv("CLIP_MIN", "3")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("PROCESSING_CONCURRENCY", "many")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestEnvDurationAcceptsBareSeconds(t *testing.T) {
	t.Setenv("PROCESSING_COOLDOWN", "5")
	d, err := envDuration("PROCESSING_COOLDOWN", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestParseByteSizeSuffixes(t *testing.T) {
	cases := map[string]int64{
		"2GiB":    2 * 1024 * 1024 * 1024,
		"512MiB":  512 * 1024 * 1024,
		"1KiB":    1024,
		"2GB":     2_000_000_000,
		"1048576": 1048576,
	}
	for input, want := range cases {
		got, err := parseByteSize(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseByteSize("lots")
	require.Error(t, err)
}

func TestDurationRangeClasses(t *testing.T) {
	min, max := DurationClassShort.DurationRange(9, 50)
	assert.Equal(t, 9.0, min)
	assert.Equal(t, 15.0, max)

	min, max = DurationClassMedium.DurationRange(9, 50)
	assert.Equal(t, 18.0, min)
	assert.Equal(t, 22.0, max)

	min, max = DurationClassLong.DurationRange(9, 50)
	assert.Equal(t, 28.0, min)
	assert.Equal(t, 32.0, max)

	min, max = DurationClassExtended.DurationRange(9, 50)
	assert.Equal(t, 40.0, min)
	assert.Equal(t, 50.0, max)

	min, max = DurationClassAny.DurationRange(9, 50)
	assert.Equal(t, 9.0, min)
	assert.Equal(t, 50.0, max)
}

func TestDetectHardwareProfileProducesSaneDefaults(t *testing.T) {
	profile := DetectHardwareProfile()
	assert.GreaterOrEqual(t, profile.LogicalCPUs, 1)
	assert.GreaterOrEqual(t, profile.SuggestedMaxParallelRenders, 1)
}
