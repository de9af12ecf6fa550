package render

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/fuse"
	"github.com/clipforge/clipforge/log"
)

// Renderer drives the bounded worker pool over a Job's selected
// Candidates.
type Renderer struct {
	MaxParallel int
	AutoCaption bool

	// Cancelled is polled before each clip render starts. Renders already
	// in flight run to completion; clips not yet started are skipped.
	Cancelled func() bool
}

func NewRenderer(maxParallel int, autoCaption bool) *Renderer {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Renderer{MaxParallel: maxParallel, AutoCaption: autoCaption}
}

// RenderAll renders every selected Candidate concurrently (bounded by
// MaxParallel) into outputDir, named clip_<nnn>.<ext> in time order.
// Candidates whose render fails twice are dropped from the returned
// list rather than aborting the whole batch.
func (r *Renderer) RenderAll(ctx context.Context, requestID, sourcePath, outputDir string, candidates []fuse.Candidate, opts Options) []Clip {
	clips := make([]Clip, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.MaxParallel)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			clips[i] = r.renderOne(gctx, requestID, sourcePath, outputDir, i+1, c, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if !c.Failed {
			out = append(out, c)
		}
	}
	return out
}

func (r *Renderer) renderOne(ctx context.Context, requestID, sourcePath, outputDir string, index int, c fuse.Candidate, opts Options) Clip {
	if r.Cancelled != nil && r.Cancelled() {
		return Clip{Index: index, Failed: true}
	}

	duration := c.Duration()
	deadline := time.Duration(maxFloat(60, 4*duration)) * time.Second

	file := fmt.Sprintf("clip_%03d.mp4", index)
	outputPath := filepath.Join(outputDir, file)
	renderOpts := OptionsFor(opts, c)

	attemptCtx, cancel := context.WithTimeout(ctx, deadline)
	err := RenderClip(attemptCtx, requestID, sourcePath, outputPath, c.Start, c.End, renderOpts)
	cancel()

	if err != nil {
		log.Log(requestID, "render failed, retrying without overlays/silence compaction",
			"clip", file, "error", err)
		retryOpts := WithoutOverlaysOrSilence(renderOpts)
		retryCtx, retryCancel := context.WithTimeout(ctx, deadline)
		err = RenderClip(retryCtx, requestID, sourcePath, outputPath, c.Start, c.End, retryOpts)
		retryCancel()
	}

	clip := Clip{
		Index:           index,
		File:            file,
		StartSeconds:    c.Start,
		EndSeconds:      c.End,
		DurationSeconds: duration,
		ViralScore:      c.ViralScore,
		ViralTier:       ViralTier(c.ViralScore),
		Category:        c.Category,
		Rationale:       c.Rationale,
		ContextComplete: c.ContextComplete,
		Fallback:        c.Fallback,
		HookText:        c.HookText,
	}

	if err != nil {
		log.Log(requestID, "render failed a second time, dropping clip", "clip", file, "error", err)
		clip.Failed = true
		return clip
	}

	if r.AutoCaption && len(c.OverlappingSegments) > 0 {
		captionFile := fmt.Sprintf("clip_%03d.captions", index)
		if err := WriteCaptions(filepath.Join(outputDir, captionFile), c.OverlappingSegments, c.Start, c.End); err != nil {
			log.Log(requestID, "caption sidecar failed, clip rendered without captions", "clip", file, "error", err)
		} else {
			clip.CaptionFile = captionFile
		}
	}

	return clip
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
