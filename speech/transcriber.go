package speech

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/config"
	clipforgeerrors "github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
)

const chunkSize = 5 * time.Minute

// Transcriber runs the primary/retry/external-backend decode ladder over
// a source's audio track.
type Transcriber struct {
	Primary  Decoder
	External Decoder // nil if no credential is configured
}

func NewTranscriber(primary, external Decoder) *Transcriber {
	return &Transcriber{Primary: primary, External: external}
}

// Transcribe produces the ordered, normalized SpeechSegment list for a
// source of the given duration. audioPath must already have been demuxed
// to an audio-only container by the caller (or may be the source path
// directly, since most decoders accept a container with a muxed audio
// track).
func (t *Transcriber) Transcribe(ctx context.Context, requestID string, audioPath string, durationSecs float64, cfg config.Pipeline) ([]Segment, error) {
	deadline := time.Duration(maxFloat(600, 2*durationSecs+300)) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	segments, err := t.runFullPipeline(runCtx, requestID, audioPath, durationSecs, cfg)
	if runCtx.Err() == context.DeadlineExceeded {
		log.Log(requestID, "transcriber deadline hit, falling back to chunked decode", "deadline", deadline)
		segments, err = t.runChunked(ctx, requestID, audioPath, durationSecs, cfg)
	}
	if err != nil {
		return nil, err
	}

	segments = normalize(segments)

	if coverage(segments, durationSecs) < 0.6 {
		return segments, clipforgeerrors.NewKindError(clipforgeerrors.KindTranscriptionUnreliable,
			"speech coverage below 60% after all decode passes")
	}
	return segments, nil
}

// runFullPipeline runs primary -> retry -> external-backend over the
// whole source in one go, with no chunking.
func (t *Transcriber) runFullPipeline(ctx context.Context, requestID, audioPath string, durationSecs float64, cfg config.Pipeline) ([]Segment, error) {
	primaryOpts := DecodeOptions{
		Model: cfg.TranscriberModel,
		Beam:  cfg.TranscriberBeam,
		Lang:  cfg.TranscriberLang,
		VAD:   cfg.TranscriberVAD,
	}
	segments, err := t.Primary.Decode(ctx, audioPath, Window{0, durationSecs}, primaryOpts)
	if err != nil {
		return t.decodeFallback(ctx, requestID, audioPath, durationSecs, cfg, err)
	}

	if cfg.HybridRetry {
		segments = t.retryPass(ctx, requestID, audioPath, segments, cfg)
	}

	if t.External != nil && cfg.ExternalBackendKey != "" {
		segments = t.externalPass(ctx, requestID, audioPath, segments, cfg)
	}

	return segments, nil
}

// decodeFallback is the whole-source ladder behind a failed primary
// decode: the retry model gets one shot at the full window, then the
// external backend. Only when every configured pass has errored is the
// decode declared backend-unavailable.
func (t *Transcriber) decodeFallback(ctx context.Context, requestID, audioPath string, durationSecs float64, cfg config.Pipeline, primaryErr error) ([]Segment, error) {
	log.Log(requestID, "primary decode failed, trying fallback passes", "err", primaryErr)

	if cfg.HybridRetry {
		opts := DecodeOptions{Model: cfg.RetryModel, Beam: 5, Lang: cfg.TranscriberLang, VAD: cfg.TranscriberVAD}
		segments, err := t.Primary.Decode(ctx, audioPath, Window{0, durationSecs}, opts)
		if err == nil {
			return segments, nil
		}
		log.Log(requestID, "retry-model decode failed", "err", err)
	}

	if t.External != nil && cfg.ExternalBackendKey != "" {
		segments, err := t.External.Decode(ctx, audioPath, Window{0, durationSecs}, DecodeOptions{Lang: cfg.TranscriberLang})
		if err == nil {
			return segments, nil
		}
		log.Log(requestID, "external backend decode failed", "err", err)
	}

	return nil, clipforgeerrors.NewKindError(clipforgeerrors.KindBackendUnavailable,
		fmt.Sprintf("all decode passes failed: %s", primaryErr))
}

// retryPass re-decodes every segment whose confidence is below the
// configured threshold, on the same window expanded +/-0.25s, with a
// larger model and beam width 5. Ties keep the primary result.
func (t *Transcriber) retryPass(ctx context.Context, requestID, audioPath string, segments []Segment, cfg config.Pipeline) []Segment {
	opts := DecodeOptions{Model: cfg.RetryModel, Beam: 5, Lang: cfg.TranscriberLang, VAD: cfg.TranscriberVAD}

	for i, seg := range segments {
		if seg.Confidence >= cfg.RetryThreshold {
			continue
		}
		window := Window{Start: seg.Start, End: seg.End}.Expand(0.25)
		retried, err := t.Primary.Decode(ctx, audioPath, window, opts)
		if err != nil {
			log.Log(requestID, "retry decode failed, keeping primary", "err", err, "start", seg.Start)
			continue
		}
		best := bestOverlapping(retried, seg)
		if best != nil && best.Confidence > seg.Confidence {
			segments[i] = *best
		}
	}
	return segments
}

// externalPass submits segments still below the threshold to the
// external backend, in ascending confidence order, accepting the result
// only if it improves on the current confidence.
func (t *Transcriber) externalPass(ctx context.Context, requestID, audioPath string, segments []Segment, cfg config.Pipeline) []Segment {
	order := make([]int, 0, len(segments))
	for i, s := range segments {
		if s.Confidence < cfg.RetryThreshold {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool { return segments[order[a]].Confidence < segments[order[b]].Confidence })

	for _, i := range order {
		seg := segments[i]
		external, err := t.External.Decode(ctx, audioPath, Window{Start: seg.Start, End: seg.End}, DecodeOptions{Lang: cfg.TranscriberLang})
		if err != nil {
			log.Log(requestID, "external backend decode failed", "err", err, "start", seg.Start)
			continue
		}
		if best := bestOverlapping(external, seg); best != nil && best.Confidence > seg.Confidence {
			segments[i] = *best
		}
	}
	return segments
}

// runChunked partitions the source into 5-minute chunks and decodes each
// independently, concatenating results. A chunk whose decode fails
// produces a placeholder segment; two consecutive placeholders abort.
func (t *Transcriber) runChunked(ctx context.Context, requestID, audioPath string, durationSecs float64, cfg config.Pipeline) ([]Segment, error) {
	type chunk struct{ start, end float64 }
	var chunks []chunk
	for start := 0.0; start < durationSecs; start += chunkSize.Seconds() {
		end := start + chunkSize.Seconds()
		if end > durationSecs {
			end = durationSecs
		}
		chunks = append(chunks, chunk{start, end})
	}

	results := make([][]Segment, len(chunks))
	placeholder := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for idx, c := range chunks {
		idx, c := idx, c
		g.Go(func() error {
			chunkCtx, cancel := context.WithTimeout(gctx, chunkSize)
			defer cancel()
			opts := DecodeOptions{Model: cfg.TranscriberModel, Beam: cfg.TranscriberBeam, Lang: cfg.TranscriberLang, VAD: cfg.TranscriberVAD}
			segs, err := t.Primary.Decode(chunkCtx, audioPath, Window{c.start, c.end}, opts)
			if err != nil || len(segs) == 0 {
				placeholder[idx] = true
				results[idx] = []Segment{{Start: c.start, End: c.end, Text: "", Confidence: 0, Placeholder: true}}
				log.Log(requestID, "chunk decode placeholder", "chunk_start", c.start, "err", err)
				return nil
			}
			results[idx] = segs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("chunked transcription: %w", err)
	}

	consecutivePlaceholders := 0
	for _, ph := range placeholder {
		if ph {
			consecutivePlaceholders++
			if consecutivePlaceholders >= 2 {
				return nil, clipforgeerrors.NewKindError(clipforgeerrors.KindTranscriptionUnreliable,
					"two consecutive chunk decode failures")
			}
		} else {
			consecutivePlaceholders = 0
		}
	}

	var flat []Segment
	for _, segs := range results {
		flat = append(flat, segs...)
	}
	return flat, nil
}

func bestOverlapping(candidates []Segment, original Segment) *Segment {
	var best *Segment
	for i := range candidates {
		c := candidates[i]
		if c.End <= original.Start || c.Start >= original.End {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = &candidates[i]
		}
	}
	return best
}

// normalize drops empty/whitespace-only segments (placeholders are kept,
// though their text is empty), sorts by start time, and resolves overlaps
// exceeding 50ms by truncating the earlier segment's end.
func normalize(segments []Segment) []Segment {
	sort.Slice(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })

	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if !s.Placeholder && strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}

	const maxOverlap = 0.050
	for i := 1; i < len(out); i++ {
		prev, cur := &out[i-1], &out[i]
		overlap := prev.End - cur.Start
		if overlap > maxOverlap {
			prev.End = cur.Start
		}
	}
	return out
}

// coverage returns the fraction of durationSecs covered by non-placeholder
// segments.
func coverage(segments []Segment, durationSecs float64) float64 {
	if durationSecs <= 0 {
		return 0
	}
	var covered float64
	for _, s := range segments {
		if !s.Placeholder {
			covered += s.Duration()
		}
	}
	return covered / durationSecs
}
