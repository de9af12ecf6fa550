package fuse

import (
	"strings"

	"github.com/clipforge/clipforge/speech"
	"github.com/clipforge/clipforge/visual"
)

// Candidate is one merged scene x speech window, before scoring.
type Candidate struct {
	Start               float64
	End                 float64
	Text                string
	Scene               visual.Scene
	HasAudio            bool
	OverlappingSegments []speech.Segment

	// Populated by the Scorer (fuse only produces the window + text).
	Scores           map[string]float64
	AudioEngagement  float64
	VisualEngagement float64
	ViralScore       float64
	Category         string
	Rationale        string
	ContextComplete  bool
	Fallback         bool
	HookText         string
}

func (c Candidate) Duration() float64 {
	return c.End - c.Start
}

// Fuse merges each Scene with the SpeechSegments whose time range
// intersects it by at least 0.5s. A Scene with no intersecting
// SpeechSegment still produces a Candidate, with empty text and zero
// audio-axis scores.
func Fuse(scenes []visual.Scene, segments []speech.Segment) []Candidate {
	candidates := make([]Candidate, 0, len(scenes))
	for _, scene := range scenes {
		overlapping := overlappingSegments(scene, segments)
		text := concatenateText(overlapping)
		candidates = append(candidates, Candidate{
			Start:               scene.Start,
			End:                 scene.End,
			Text:                text,
			Scene:               scene,
			HasAudio:            len(overlapping) > 0,
			OverlappingSegments: overlapping,
		})
	}
	return candidates
}

const minOverlapSecs = 0.5

func overlappingSegments(scene visual.Scene, segments []speech.Segment) []speech.Segment {
	var out []speech.Segment
	for _, seg := range segments {
		intersectionStart := maxFloat(scene.Start, seg.Start)
		intersectionEnd := minFloat(scene.End, seg.End)
		if intersectionEnd-intersectionStart >= minOverlapSecs {
			out = append(out, seg)
		}
	}
	return out
}

func concatenateText(segments []speech.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
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
