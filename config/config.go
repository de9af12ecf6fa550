package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

var Version string

// Used so that tests can generate fixed timestamps instead of relying on the wall clock.
var Clock TimestampGenerator = RealTimestampGenerator{}

const (
	MinClipsFloorDefault = 5
	MaxClipsDefault      = 20
	MinViralDefault      = 0.08

	ClipMinSecondsDefault = 9.0
	ClipMaxSecondsDefault = 50.0

	MaxSourceDurationSecondsDefault = 3600
	MaxSourceSizeBytesDefault       = 2 * 1024 * 1024 * 1024 // 2 GiB

	ProcessingConcurrencyDefault = 1
	ProcessingCooldownDefault    = 1 * time.Second
	MaxParallelRendersDefault    = 2

	SceneThresholdDefault  = 12.0
	MinSceneSecondsDefault = 3.0
	MaxSceneSecondsDefault = 60.0
	RetryThresholdDefault  = 0.7
	TranscriberBeamDefault = 5

	TranscriberModelDefault = "medium"
	RetryModelDefault       = "large"
	TranscriberLangDefault  = "auto"

	HookDurationDefault = 4.0
	HookPositionDefault = "center"

	SilenceDBDefault      = -35.0
	MinSilenceDefault     = 0.4
	SilencePaddingDefault = 0.05

	TargetWidthDefault  = 1920
	TargetHeightDefault = 1080
	VideoBitrateDefault = "4M"
	AudioBitrateDefault = "192k"
)

// DurationClass names the clip-length buckets the Selector filters on.
type DurationClass string

const (
	DurationClassShort    DurationClass = "short"
	DurationClassMedium   DurationClass = "medium"
	DurationClassLong     DurationClass = "long"
	DurationClassExtended DurationClass = "extended"
	DurationClassAny      DurationClass = "any"
)

// DurationRange returns the [min, max] seconds window for a duration class.
// DurationClassAny returns the job's configured clip-min/clip-max window verbatim.
func (d DurationClass) DurationRange(clipMin, clipMax float64) (float64, float64) {
	switch d {
	case DurationClassShort:
		return 9, 15
	case DurationClassMedium:
		return 18, 22
	case DurationClassLong:
		return 28, 32
	case DurationClassExtended:
		return 40, 50
	default:
		return clipMin, clipMax
	}
}

// Pipeline holds every processing knob. It's loaded once from
// the environment at process startup and then copied verbatim into each
// Job's config snapshot, so a job that's already running is unaffected by
// any later change to the environment.
type Pipeline struct {
	ProcessingConcurrency int
	ProcessingCooldown    time.Duration

	MaxSourceSizeBytes    int64
	MaxSourceDurationSecs float64

	TranscriberModel string
	TranscriberBeam  int
	TranscriberLang  string
	TranscriberVAD   bool

	HybridRetry        bool
	RetryModel         string
	RetryThreshold     float64
	ExternalBackendKey string
	ExternalBackendURL string

	SceneThreshold  float64
	MinSceneSeconds float64
	MaxSceneSeconds float64

	ClipMin       float64
	ClipMax       float64
	MinClipsFloor int
	MaxClips      int
	MinViral      float64

	TargetWidth  int
	TargetHeight int
	VideoBitrate string
	AudioBitrate string

	HookEnabled  bool
	HookDuration float64
	HookPosition string

	SilenceRemoval bool
	SilenceDB      float64
	MinSilence     float64
	SilencePad     float64

	MaxParallelRenders int

	Hardware HardwareProfile
}

// FromEnv loads a Pipeline from the environment, falling back to the
// built-in defaults for anything unset. It returns an error for
// malformed values so the CLI entrypoint can exit with a config-error code.
func FromEnv() (Pipeline, error) {
	p := Pipeline{
		ProcessingConcurrency: ProcessingConcurrencyDefault,
		ProcessingCooldown:    ProcessingCooldownDefault,
		MaxSourceSizeBytes:    MaxSourceSizeBytesDefault,
		MaxSourceDurationSecs: MaxSourceDurationSecondsDefault,
		TranscriberModel:      TranscriberModelDefault,
		TranscriberBeam:       TranscriberBeamDefault,
		TranscriberLang:       TranscriberLangDefault,
		TranscriberVAD:        true,
		HybridRetry:           true,
		RetryModel:            RetryModelDefault,
		RetryThreshold:        RetryThresholdDefault,
		SceneThreshold:        SceneThresholdDefault,
		MinSceneSeconds:       MinSceneSecondsDefault,
		MaxSceneSeconds:       MaxSceneSecondsDefault,
		ClipMin:               ClipMinSecondsDefault,
		ClipMax:               ClipMaxSecondsDefault,
		MinClipsFloor:         MinClipsFloorDefault,
		MaxClips:              MaxClipsDefault,
		MinViral:              MinViralDefault,
		TargetWidth:           TargetWidthDefault,
		TargetHeight:          TargetHeightDefault,
		VideoBitrate:          VideoBitrateDefault,
		AudioBitrate:          AudioBitrateDefault,
		HookEnabled:           true,
		HookDuration:          HookDurationDefault,
		HookPosition:          HookPositionDefault,
		SilenceRemoval:        false,
		SilenceDB:             SilenceDBDefault,
		MinSilence:            MinSilenceDefault,
		SilencePad:            SilencePaddingDefault,
		MaxParallelRenders:    MaxParallelRendersDefault,
	}

	var err error
	if p.ProcessingConcurrency, err = envInt("PROCESSING_CONCURRENCY", p.ProcessingConcurrency); err != nil {
		return p, err
	}
	if p.ProcessingCooldown, err = envDuration("PROCESSING_COOLDOWN", p.ProcessingCooldown); err != nil {
		return p, err
	}
	if p.MaxSourceSizeBytes, err = envBytes("MAX_SOURCE_SIZE", p.MaxSourceSizeBytes); err != nil {
		return p, err
	}
	if p.MaxSourceDurationSecs, err = envFloat("MAX_SOURCE_DURATION", p.MaxSourceDurationSecs); err != nil {
		return p, err
	}
	p.TranscriberModel = envString("TRANSCRIBER_MODEL", p.TranscriberModel)
	if p.TranscriberBeam, err = envInt("TRANSCRIBER_BEAM", p.TranscriberBeam); err != nil {
		return p, err
	}
	p.TranscriberLang = envString("TRANSCRIBER_LANG", p.TranscriberLang)
	if p.TranscriberVAD, err = envBool("TRANSCRIBER_VAD", p.TranscriberVAD); err != nil {
		return p, err
	}
	if p.HybridRetry, err = envBool("HYBRID_RETRY", p.HybridRetry); err != nil {
		return p, err
	}
	p.RetryModel = envString("RETRY_MODEL", p.RetryModel)
	if p.RetryThreshold, err = envFloat("RETRY_THRESHOLD", p.RetryThreshold); err != nil {
		return p, err
	}
	p.ExternalBackendKey = envString("EXTERNAL_BACKEND_KEY", "")
	p.ExternalBackendURL = envString("EXTERNAL_BACKEND_URL", "")

	if p.SceneThreshold, err = envFloat("SCENE_THRESHOLD", p.SceneThreshold); err != nil {
		return p, err
	}
	if p.MinSceneSeconds, err = envFloat("MIN_SCENE_SECONDS", p.MinSceneSeconds); err != nil {
		return p, err
	}
	if p.MaxSceneSeconds, err = envFloat("MAX_SCENE_SECONDS", p.MaxSceneSeconds); err != nil {
		return p, err
	}

	if p.ClipMin, err = envFloat("CLIP_MIN", p.ClipMin); err != nil {
		return p, err
	}
	if p.ClipMax, err = envFloat("CLIP_MAX", p.ClipMax); err != nil {
		return p, err
	}
	if p.ClipMin < 5 {
		return p, fmt.Errorf("CLIP_MIN must be >= 5 seconds, got %v", p.ClipMin)
	}
	if p.MinClipsFloor, err = envInt("MIN_CLIPS_FLOOR", p.MinClipsFloor); err != nil {
		return p, err
	}
	if p.MaxClips, err = envInt("MAX_CLIPS", p.MaxClips); err != nil {
		return p, err
	}
	if p.MinViral, err = envFloat("MIN_VIRAL", p.MinViral); err != nil {
		return p, err
	}

	if p.TargetWidth, err = envInt("TARGET_WIDTH", p.TargetWidth); err != nil {
		return p, err
	}
	if p.TargetHeight, err = envInt("TARGET_HEIGHT", p.TargetHeight); err != nil {
		return p, err
	}
	p.VideoBitrate = envString("VIDEO_BITRATE", p.VideoBitrate)
	p.AudioBitrate = envString("AUDIO_BITRATE", p.AudioBitrate)

	if p.HookEnabled, err = envBool("HOOK_ENABLED", p.HookEnabled); err != nil {
		return p, err
	}
	if p.HookDuration, err = envFloat("HOOK_DURATION", p.HookDuration); err != nil {
		return p, err
	}
	p.HookPosition = envString("HOOK_POSITION", p.HookPosition)

	if p.SilenceRemoval, err = envBool("SILENCE_REMOVAL", p.SilenceRemoval); err != nil {
		return p, err
	}
	if p.SilenceDB, err = envFloat("SILENCE_DB", p.SilenceDB); err != nil {
		return p, err
	}
	if p.MinSilence, err = envFloat("MIN_SILENCE", p.MinSilence); err != nil {
		return p, err
	}
	if p.SilencePad, err = envFloat("SILENCE_PAD", p.SilencePad); err != nil {
		return p, err
	}

	if p.MaxParallelRenders, err = envInt("MAX_PARALLEL_RENDERS", p.MaxParallelRenders); err != nil {
		return p, err
	}

	p.Hardware = DetectHardwareProfile()
	if p.Hardware.Accelerated {
		if os.Getenv("PROCESSING_CONCURRENCY") == "" {
			p.ProcessingConcurrency = 2
		}
		if os.Getenv("MAX_PARALLEL_RENDERS") == "" {
			p.MaxParallelRenders = p.Hardware.SuggestedMaxParallelRenders
		}
	}

	return p, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if n, err2 := strconv.Atoi(v); err2 == nil {
			return time.Duration(n) * time.Second, nil
		}
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// envBytes parses sizes like "2GiB", "512MiB" as well as a bare byte count.
func envBytes(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := parseByteSize(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseByteSize(v string) (int64, error) {
	multipliers := []struct {
		suffix string
		mult   float64
	}{
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"GB", 1e9},
		{"MB", 1e6},
		{"KB", 1e3},
	}
	for _, m := range multipliers {
		if len(v) > len(m.suffix) && v[len(v)-len(m.suffix):] == m.suffix {
			n, err := strconv.ParseFloat(v[:len(v)-len(m.suffix)], 64)
			if err != nil {
				return 0, err
			}
			return int64(n * m.mult), nil
		}
	}
	return strconv.ParseInt(v, 10, 64)
}
