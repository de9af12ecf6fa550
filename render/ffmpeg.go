package render

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/clipforge/clipforge/fuse"
	"github.com/clipforge/clipforge/subprocess"
)

// Options configures a single clip render, snapshotted from the job's
// Pipeline config plus the per-job /process request fields.
type Options struct {
	TargetWidth  int
	TargetHeight int
	AspectRatio  string // "16:9" or "9:16"; overrides TargetWidth/Height when set
	VideoBitrate string
	AudioBitrate string

	HookEnabled  bool
	HookDuration float64
	HookPosition string // top|center|bottom
	HookText     string

	SilenceRemoval bool
	SilenceDB      float64
	MinSilence     float64
	SilencePad     float64
}

func (o Options) dimensions() (int, int) {
	switch o.AspectRatio {
	case "9:16":
		return 1080, 1920
	case "16:9":
		return 1920, 1080
	default:
		if o.TargetWidth > 0 && o.TargetHeight > 0 {
			return o.TargetWidth, o.TargetHeight
		}
		return 1920, 1080
	}
}

// formatTime renders a seconds offset in ffmpeg's HH:MM:SS.mmm syntax.
func formatTime(timeSeconds float64) string {
	timeMillis := int64(timeSeconds * 1000)
	duration := time.Duration(timeMillis) * time.Millisecond
	formattedTime := time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(duration)
	return formattedTime.Format("15:04:05.000")
}

// buildFilterGraph assembles the -vf chain: scale-to-fit, pad to target
// dimensions (letterbox/pillarbox), and optionally a fading drawtext
// overlay for the hook text.
func buildFilterGraph(opts Options, clipDuration float64) string {
	width, height := opts.dimensions()
	scale := fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", width, height)
	pad := fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", width, height)
	graph := scale + "," + pad

	if opts.HookEnabled && opts.HookText != "" {
		graph += "," + drawTextFilter(opts, width, height)
	}
	return graph
}

func drawTextFilter(opts Options, width, height int) string {
	yExpr := "(h-text_h)/2"
	switch opts.HookPosition {
	case "top":
		yExpr = "h*0.08"
	case "bottom":
		yExpr = "h*0.85"
	}

	fadeStart := opts.HookDuration - 0.5
	if fadeStart < 0 {
		fadeStart = 0
	}
	alpha := fmt.Sprintf(
		"if(lt(t,0.5),t/0.5,if(lt(t,%.3f),1,if(lt(t,%.3f),(%.3f-t)/0.5,0)))",
		fadeStart, opts.HookDuration, opts.HookDuration,
	)

	text := escapeDrawtext(opts.HookText)
	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white:box=1:boxcolor=black@0.5:boxborderw=10:x=(w-text_w)/2:y=%s:alpha='%s':enable='lte(t,%.3f)'",
		text, width/24, yExpr, alpha, opts.HookDuration,
	)
}

func escapeDrawtext(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch r {
		case '\'', ':', '\\':
			out = append(out, '\\')
		}
		out = append(out, string(r)...)
	}
	return string(out)
}

// audioFilterGraph builds the -af chain for optional silence compaction:
// silenceremove drops every stretch quieter than SilenceDB that lasts
// longer than MinSilence, and apad appends SilencePad seconds of silence
// at the end of the stream. No padding is kept beside the remaining
// speech, and only the audio track is filtered.
func audioFilterGraph(opts Options) string {
	if !opts.SilenceRemoval {
		return ""
	}
	return fmt.Sprintf(
		"silenceremove=stop_periods=-1:stop_duration=%.3f:stop_threshold=%.1fdB:detection=peak,"+
			"apad=pad_dur=%.3f",
		opts.MinSilence, opts.SilenceDB, opts.SilencePad,
	)
}

// RenderClip cuts [start,end) from sourcePath, re-encodes to the target
// dimensions, letterboxes, and optionally overlays the hook text and
// compacts silence.
func RenderClip(ctx context.Context, requestID, sourcePath, outputPath string, start, end float64, opts Options) error {
	duration := end - start

	args := []string{
		"-y",
		"-ss", formatTime(start),
		"-to", formatTime(end),
		"-i", sourcePath,
		"-vf", buildFilterGraph(opts, duration),
	}

	if af := audioFilterGraph(opts); af != "" {
		args = append(args, "-af", af)
	}

	args = append(args,
		"-c:v", "libx264",
		"-b:v", opts.VideoBitrate,
		"-c:a", "aac",
		"-b:a", opts.AudioBitrate,
		"-movflags", "+faststart",
		"-loglevel", "error",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if err := subprocess.LogOutputs(cmd); err != nil {
		return fmt.Errorf("attaching render output: %w", err)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("render invocation failed: %w", err)
	}
	return nil
}

// WithoutOverlaysOrSilence returns a copy of opts with the hook overlay
// and silence compaction disabled, used on the one retry a render gets
// after its first failure.
func WithoutOverlaysOrSilence(opts Options) Options {
	opts.HookEnabled = false
	opts.SilenceRemoval = false
	return opts
}

// OptionsFor merges render Options with a specific Candidate's hook text.
func OptionsFor(base Options, c fuse.Candidate) Options {
	base.HookText = c.HookText
	return base
}
