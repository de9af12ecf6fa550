package speech

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/config"
	clipforgeerrors "github.com/clipforge/clipforge/errors"
)

// stubDecoder returns canned segments per window, recording every
// invocation so tests can assert on the ladder's behavior.
type stubDecoder struct {
	mu     sync.Mutex
	calls  []Window
	decode func(window Window, opts DecodeOptions) ([]Segment, error)
}

func (d *stubDecoder) Decode(_ context.Context, _ string, window Window, opts DecodeOptions) ([]Segment, error) {
	d.mu.Lock()
	d.calls = append(d.calls, window)
	d.mu.Unlock()
	return d.decode(window, opts)
}

func baseConfig() config.Pipeline {
	return config.Pipeline{
		TranscriberModel: "medium",
		TranscriberBeam:  5,
		TranscriberLang:  "auto",
		TranscriberVAD:   true,
		HybridRetry:      true,
		RetryModel:       "large",
		RetryThreshold:   0.7,
	}
}

func TestTranscribeHappyPathCoversSource(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return []Segment{
			{Start: 0, End: 30, Text: "hello world", Confidence: 0.9},
			{Start: 30, End: 60, Text: "more speech", Confidence: 0.85},
		}, nil
	}}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, baseConfig())
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "hello world", segments[0].Text)
}

func TestTranscribeRetriesLowConfidenceSegmentsWithExpandedWindow(t *testing.T) {
	callCount := 0
	primary := &stubDecoder{}
	primary.decode = func(window Window, opts DecodeOptions) ([]Segment, error) {
		callCount++
		if callCount == 1 {
			return []Segment{
				{Start: 10, End: 20, Text: "garbled", Confidence: 0.3},
				{Start: 20, End: 60, Text: "clear speech throughout here", Confidence: 0.95},
			}, nil
		}
		// retry pass: higher-confidence replacement on the expanded window
		return []Segment{{Start: 10, End: 20, Text: "fixed text", Confidence: 0.8}}, nil
	}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, baseConfig())
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "fixed text", segments[0].Text)
	assert.Equal(t, 0.8, segments[0].Confidence)

	// The retry window is the original expanded by 0.25s on each side.
	retryWindow := primary.calls[1]
	assert.InDelta(t, 9.75, retryWindow.Start, 1e-9)
	assert.InDelta(t, 20.25, retryWindow.End, 1e-9)
}

func TestTranscribeRetryKeepsPrimaryOnTie(t *testing.T) {
	callCount := 0
	primary := &stubDecoder{}
	primary.decode = func(window Window, opts DecodeOptions) ([]Segment, error) {
		callCount++
		if callCount == 1 {
			return []Segment{{Start: 0, End: 60, Text: "primary words", Confidence: 0.5}}, nil
		}
		return []Segment{{Start: 0, End: 60, Text: "retry words", Confidence: 0.5}}, nil
	}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, baseConfig())
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "primary words", segments[0].Text)
}

func TestTranscribeSkipsRetryWhenHybridDisabled(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return []Segment{{Start: 0, End: 60, Text: "low confidence", Confidence: 0.1}}, nil
	}}

	cfg := baseConfig()
	cfg.HybridRetry = false

	tr := NewTranscriber(primary, nil)
	_, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, cfg)
	require.NoError(t, err)
	assert.Len(t, primary.calls, 1)
}

func TestTranscribeExternalPassAcceptsOnlyImprovements(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return []Segment{
			{Start: 0, End: 30, Text: "weak one", Confidence: 0.4},
			{Start: 30, End: 60, Text: "weak two", Confidence: 0.5},
		}, nil
	}}
	external := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		if window.Start == 0 {
			return []Segment{{Start: 0, End: 30, Text: "external better", Confidence: 0.9}}, nil
		}
		return []Segment{{Start: 30, End: 60, Text: "external worse", Confidence: 0.2}}, nil
	}}

	cfg := baseConfig()
	cfg.HybridRetry = false
	cfg.ExternalBackendKey = "secret"

	tr := NewTranscriber(primary, external)
	segments, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, cfg)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "external better", segments[0].Text)
	assert.Equal(t, "weak two", segments[1].Text)

	// Ascending confidence order: the 0.4 segment goes out first.
	require.Len(t, external.calls, 2)
	assert.Equal(t, 0.0, external.calls[0].Start)
}

func TestTranscribeAllDecodePassesFailingIsBackendUnavailable(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return nil, fmt.Errorf("decoder crashed")
	}}
	external := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return nil, fmt.Errorf("backend returned status 503")
	}}

	cfg := baseConfig()
	cfg.ExternalBackendKey = "secret"

	tr := NewTranscriber(primary, external)
	_, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, cfg)
	require.Error(t, err)
	assert.Equal(t, clipforgeerrors.KindBackendUnavailable, clipforgeerrors.AsKind(err))

	// primary pass + retry-model pass both went through the primary decoder
	assert.Len(t, primary.calls, 2)
	assert.Len(t, external.calls, 1)
}

func TestTranscribeRetryModelRescuesFailedPrimaryDecode(t *testing.T) {
	callCount := 0
	primary := &stubDecoder{}
	primary.decode = func(window Window, opts DecodeOptions) ([]Segment, error) {
		callCount++
		if callCount == 1 {
			return nil, fmt.Errorf("decoder crashed")
		}
		return []Segment{{Start: 0, End: 60, Text: "rescued by the larger model", Confidence: 0.9}}, nil
	}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 60, baseConfig())
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "rescued by the larger model", segments[0].Text)
}

func TestTranscribeFailsWhenCoverageBelowSixtyPercent(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return []Segment{{Start: 0, End: 10, Text: "tiny sliver", Confidence: 0.9}}, nil
	}}

	tr := NewTranscriber(primary, nil)
	_, err := tr.Transcribe(context.Background(), "req", "/tmp/a.mp4", 600, baseConfig())
	require.Error(t, err)
	assert.Equal(t, clipforgeerrors.KindTranscriptionUnreliable, clipforgeerrors.AsKind(err))
}

func TestRunChunkedConcatenatesChunkSegments(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return []Segment{
			{Start: window.Start, End: window.Start + 100, Text: fmt.Sprintf("chunk at %.0f", window.Start), Confidence: 0.9},
			{Start: window.Start + 100, End: window.End, Text: "tail", Confidence: 0.9},
		}, nil
	}}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.runChunked(context.Background(), "req", "/tmp/a.mp4", 600, baseConfig())
	require.NoError(t, err)
	assert.Len(t, segments, 4) // two 5-minute chunks, two segments each
}

func TestRunChunkedAbortsOnTwoConsecutivePlaceholders(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		return nil, fmt.Errorf("decoder crashed")
	}}

	tr := NewTranscriber(primary, nil)
	_, err := tr.runChunked(context.Background(), "req", "/tmp/a.mp4", 900, baseConfig())
	require.Error(t, err)
	assert.Equal(t, clipforgeerrors.KindTranscriptionUnreliable, clipforgeerrors.AsKind(err))
}

func TestRunChunkedToleratesIsolatedPlaceholder(t *testing.T) {
	primary := &stubDecoder{decode: func(window Window, _ DecodeOptions) ([]Segment, error) {
		if window.Start == 300 {
			return nil, fmt.Errorf("decoder crashed on this chunk")
		}
		return []Segment{{Start: window.Start, End: window.End, Text: "fine", Confidence: 0.9}}, nil
	}}

	tr := NewTranscriber(primary, nil)
	segments, err := tr.runChunked(context.Background(), "req", "/tmp/a.mp4", 900, baseConfig())
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.True(t, segments[1].Placeholder)
}

func TestNormalizeDropsEmptyAndResolvesOverlaps(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 10.5, Text: "overlaps the next one"},
		{Start: 10, End: 20, Text: "second"},
		{Start: 20, End: 25, Text: "  "},
	}

	out := normalize(segments)
	require.Len(t, out, 2)
	assert.Equal(t, 10.0, out[0].End)
}

func TestNormalizeKeepsOverlapsWithinFiftyMillis(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 10.04, Text: "tiny overlap"},
		{Start: 10, End: 20, Text: "second"},
	}

	out := normalize(segments)
	require.Len(t, out, 2)
	assert.Equal(t, 10.04, out[0].End)
}

func TestLogProbToConfidenceIsMonotone(t *testing.T) {
	assert.Equal(t, 1.0, logProbToConfidence(0))
	assert.Greater(t, logProbToConfidence(-0.1), logProbToConfidence(-1.0))
	assert.Greater(t, logProbToConfidence(-1.0), logProbToConfidence(-5.0))
	assert.Equal(t, 1.0, logProbToConfidence(0.5))
}

func TestCoverageIgnoresPlaceholders(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 50, Text: "real"},
		{Start: 50, End: 100, Placeholder: true},
	}
	assert.InDelta(t, 0.5, coverage(segments, 100), 1e-9)
}
