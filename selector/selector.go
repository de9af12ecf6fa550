package selector

import (
	"sort"

	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/fuse"
)

const defaultTileWindow = 20.0

// Config is the subset of the job's Pipeline snapshot the Selector needs.
type Config struct {
	DurationClass config.DurationClass
	ClipMin       float64
	ClipMax       float64
	MinClipsFloor int
	MaxClips      int
	MinViral      float64
}

// Select picks the final clip set from scored Candidates and returns a
// stable, time-sorted list. durationSecs is the source's total length,
// needed for the coverage-tiling fallback.
//
// Only candidates whose duration fits the configured clip range are ever
// eligible: a rendered clip outside [ClipMin, ClipMax] is an invariant
// violation, so out-of-range candidates don't survive even the relax
// pass. A result below MinClipsFloor but above zero is returned as-is
// (the caller surfaces a coverage warning); insufficient-material means
// nothing could be produced at all.
func Select(candidates []fuse.Candidate, cfg Config, durationSecs float64) ([]fuse.Candidate, error) {
	eligible := filterByDuration(candidates, cfg.ClipMin, cfg.ClipMax)

	minDur, maxDur := cfg.DurationClass.DurationRange(cfg.ClipMin, cfg.ClipMax)
	minDur, maxDur = widenByPercent(minDur, maxDur, 0.10)
	if minDur < cfg.ClipMin {
		minDur = cfg.ClipMin
	}
	if maxDur > cfg.ClipMax {
		maxDur = cfg.ClipMax
	}

	filtered := filterByDuration(eligible, minDur, maxDur)
	if len(filtered) < cfg.MinClipsFloor {
		filtered = eligible
	}

	picked := greedyPick(filtered, cfg.MaxClips, cfg.MinViral)

	if len(picked) < cfg.MinClipsFloor {
		relaxed := greedyPick(eligible, cfg.MaxClips, 0)
		for i := range relaxed {
			relaxed[i].Fallback = true
		}
		picked = mergeNonOverlapping(picked, relaxed, cfg.MaxClips)
	}

	if len(picked) < cfg.MinClipsFloor {
		tiles := fabricateTiles(picked, durationSecs, defaultTileWindow, cfg.ClipMin, cfg.ClipMax)
		picked = mergeNonOverlapping(picked, tiles, cfg.MaxClips)
	}

	if len(picked) < cfg.MinClipsFloor && cfg.MinClipsFloor > 0 {
		// The default tile window may be too wide for a short source;
		// shrink toward the configured minimum so tiling can still reach
		// the floor on sources that fit floor windows of ClipMin seconds.
		window := durationSecs / float64(cfg.MinClipsFloor)
		if window >= cfg.ClipMin {
			tiles := fabricateTiles(picked, durationSecs, window, cfg.ClipMin, cfg.ClipMax)
			picked = mergeNonOverlapping(picked, tiles, cfg.MaxClips)
		}
	}

	if len(picked) == 0 {
		return nil, errors.NewKindError(errors.KindInsufficientMaterial,
			"source too short to produce any clip of the configured minimum duration")
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Start < picked[j].Start })
	return picked, nil
}

func widenByPercent(min, max, pct float64) (float64, float64) {
	span := max - min
	return min - span*pct, max + span*pct
}

func filterByDuration(candidates []fuse.Candidate, minDur, maxDur float64) []fuse.Candidate {
	var out []fuse.Candidate
	for _, c := range candidates {
		d := c.Duration()
		if d >= minDur && d <= maxDur {
			out = append(out, c)
		}
	}
	return out
}

// rank sorts by viral_score desc, then hook_axis desc, then earlier
// start.
func rank(candidates []fuse.Candidate) []fuse.Candidate {
	ranked := make([]fuse.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ViralScore != b.ViralScore {
			return a.ViralScore > b.ViralScore
		}
		if a.Scores["hook"] != b.Scores["hook"] {
			return a.Scores["hook"] > b.Scores["hook"]
		}
		return a.Start < b.Start
	})
	return ranked
}

func greedyPick(candidates []fuse.Candidate, maxClips int, minViral float64) []fuse.Candidate {
	ranked := rank(candidates)
	var picked []fuse.Candidate
	for _, c := range ranked {
		if len(picked) >= maxClips {
			break
		}
		if c.ViralScore < minViral {
			break
		}
		if overlapsAny(c, picked) {
			continue
		}
		picked = append(picked, c)
	}
	return picked
}

const minOverlapSecs = 0.5

func overlapsAny(c fuse.Candidate, picked []fuse.Candidate) bool {
	for _, p := range picked {
		start := maxFloat(c.Start, p.Start)
		end := minFloat(c.End, p.End)
		if end-start >= minOverlapSecs {
			return true
		}
	}
	return false
}

// mergeNonOverlapping extends base with entries from extra that don't
// overlap base or each other, capped at maxClips total.
func mergeNonOverlapping(base, extra []fuse.Candidate, maxClips int) []fuse.Candidate {
	merged := make([]fuse.Candidate, len(base))
	copy(merged, base)
	for _, c := range extra {
		if len(merged) >= maxClips {
			break
		}
		if overlapsAny(c, merged) {
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// fabricateTiles tiles the source timeline with non-overlapping windows,
// skipping any offset that collides with an existing pick.
func fabricateTiles(existing []fuse.Candidate, durationSecs, window, minDur, maxDur float64) []fuse.Candidate {
	if window < minDur {
		window = minDur
	}
	if window > maxDur {
		window = maxDur
	}
	var tiles []fuse.Candidate
	for offset := 0.0; offset+window <= durationSecs; offset += window {
		tile := fuse.Candidate{
			Start:           offset,
			End:             offset + window,
			Category:        "balanced",
			Rationale:       "coverage fallback",
			Fallback:        true,
			ContextComplete: false,
			ViralScore:      0,
		}
		if overlapsAny(tile, existing) {
			continue
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
