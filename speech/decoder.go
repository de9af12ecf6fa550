package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"

	"github.com/clipforge/clipforge/subprocess"
)

// Window is a [start,end) audio time range, in seconds, relative to the
// start of the source file.
type Window struct {
	Start float64
	End   float64
}

func (w Window) Expand(padSecs float64) Window {
	return Window{Start: maxFloat(0, w.Start-padSecs), End: w.End + padSecs}
}

// DecodeOptions configures a single decoder invocation.
type DecodeOptions struct {
	Model string
	Beam  int
	Lang  string
	VAD   bool
}

// Decoder produces SpeechSegments for an audio window. The primary pass,
// retry pass and chunk-fallback pass all go through this same interface;
// only the DecodeOptions and Window differ between them.
type Decoder interface {
	Decode(ctx context.Context, audioPath string, window Window, opts DecodeOptions) ([]Segment, error)
}

// subprocessSegment mirrors the JSON line shape emitted by the decoder
// binary: one JSON object per recognized segment on stdout.
type subprocessSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogProb float64 `json:"avg_logprob"`
	Language   string  `json:"language"`
}

// SubprocessDecoder shells out to a local speech-decoder binary (default
// "whisper") once per invocation, treating the decoder like any other
// external media tool.
type SubprocessDecoder struct {
	BinaryPath string
}

func NewSubprocessDecoder(binaryPath string) *SubprocessDecoder {
	if binaryPath == "" {
		binaryPath = "whisper"
	}
	return &SubprocessDecoder{BinaryPath: binaryPath}
}

func (d *SubprocessDecoder) Decode(ctx context.Context, audioPath string, window Window, opts DecodeOptions) ([]Segment, error) {
	args := []string{
		audioPath,
		"--model", opts.Model,
		"--beam_size", strconv.Itoa(opts.Beam),
		"--language", opts.Lang,
		"--output_format", "json",
		"--clip_start", strconv.FormatFloat(window.Start, 'f', 3, 64),
		"--clip_end", strconv.FormatFloat(window.End, 'f', 3, 64),
	}
	if opts.VAD {
		args = append(args, "--vad_filter", "true")
	}

	cmd := exec.CommandContext(ctx, d.BinaryPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := subprocess.LogStderr(cmd); err != nil {
		return nil, fmt.Errorf("attaching decoder stderr: %w", err)
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decoder invocation failed: %w", err)
	}

	var raw []subprocessSegment
	dec := json.NewDecoder(&stdout)
	for dec.More() {
		var r subprocessSegment
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("parsing decoder output: %w", err)
		}
		raw = append(raw, r)
	}

	segments := make([]Segment, 0, len(raw))
	for _, r := range raw {
		segments = append(segments, Segment{
			Start:      r.Start,
			End:        r.End,
			Text:       r.Text,
			Confidence: logProbToConfidence(r.AvgLogProb),
			Language:   r.Language,
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return segments, nil
}

// logProbToConfidence maps a mean token log-probability monotonically to
// [0,1] via a clipped exponential. A log-prob of 0 (perfect certainty)
// maps to 1.0; increasingly negative log-probs decay toward 0.
func logProbToConfidence(avgLogProb float64) float64 {
	// exp(x) is monotonic and maps (-inf,0] -> (0,1]; avg_logprob from a
	// decoder is always <= 0.
	x := avgLogProb
	if x > 0 {
		x = 0
	}
	c := math.Exp(x)
	if c > 1 {
		return 1
	}
	return c
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
