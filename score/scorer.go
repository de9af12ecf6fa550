package score

import (
	"regexp"
	"sort"
	"strings"

	"github.com/clipforge/clipforge/fuse"
	"github.com/clipforge/clipforge/speech"
	"github.com/clipforge/clipforge/visual"
)

// Config is the subset of the job's Pipeline snapshot the Scorer needs.
type Config struct {
	Style   string // balanced|funny|educational|dramatic|controversial
	ClipMin float64
	ClipMax float64
}

type Scorer struct {
	Lexicon Lexicon
}

func NewScorer(lexicon Lexicon) *Scorer {
	return &Scorer{Lexicon: lexicon}
}

var (
	questionRe    = regexp.MustCompile(`\?`)
	exclamationRe = regexp.MustCompile(`!`)
	numberRe      = regexp.MustCompile(`\d`)
	terminalRe    = regexp.MustCompile(`[.!?]\s*$`)
)

// Score fills in every score/category/rationale/completeness field on
// the Candidate and returns it.
func (s *Scorer) Score(c fuse.Candidate, cfg Config) fuse.Candidate {
	textLower := strings.ToLower(c.Text)

	raw := map[string]float64{
		"hook":          rawAxisScore(textLower, s.Lexicon.Hook),
		"emotional":     rawAxisScore(textLower, s.Lexicon.Emotional),
		"controversial": rawAxisScore(textLower, s.Lexicon.Controversial),
		"educational":   rawAxisScore(textLower, s.Lexicon.Educational),
		"entertaining":  rawAxisScore(textLower, s.Lexicon.Entertaining),
		"money":         rawAxisScore(textLower, s.Lexicon.Money),
		"urgency":       rawAxisScore(textLower, s.Lexicon.Urgency),
	}
	fillerMatches := countMatches(textLower, s.Lexicon.Filler)
	fillerPenalty := minFloat(0.08*float64(fillerMatches), 0.4)

	hasQuestion := boolToFloat(questionRe.MatchString(c.Text))
	hasNumber := boolToFloat(numberRe.MatchString(c.Text))
	hasExclamation := boolToFloat(exclamationRe.MatchString(c.Text))

	audioEngagement := clip01(
		0.25*raw["hook"] + 0.18*raw["emotional"] + 0.12*raw["controversial"] + 0.12*raw["educational"] +
			0.12*raw["entertaining"] + 0.15*raw["money"] + 0.15*raw["urgency"] +
			0.05*hasQuestion + 0.05*hasNumber + 0.05*hasExclamation -
			fillerPenalty,
	)
	if !c.HasAudio {
		audioEngagement = 0
	}

	visualEngagement := 0.5*c.Scene.FaceRatio + 0.3*c.Scene.Motion + 0.2*c.Scene.Brightness
	if c.Scene.FaceRatio > 0.5 {
		visualEngagement += 0.08
	}
	if c.Scene.Motion > 0.6 {
		visualEngagement += 0.08
	}
	visualEngagement = clip01(visualEngagement)

	viral := 0.35*raw["hook"] + 0.25*audioEngagement + 0.25*visualEngagement +
		pacingBonus(c.Duration()) + styleBonus(cfg.Style, raw)
	viral = clip01(viral)

	category := categoryFor(raw)
	contextComplete := isContextComplete(c, cfg, s.Lexicon)
	if !contextComplete {
		viral *= 0.6
	}

	c.Scores = raw
	c.AudioEngagement = audioEngagement
	c.VisualEngagement = visualEngagement
	c.ViralScore = viral
	c.Category = category
	c.ContextComplete = contextComplete
	c.Rationale = rationale(raw, c.Scene, c.AudioEngagement, c.VisualEngagement)
	return c
}

func rawAxisScore(textLower string, words []string) float64 {
	return minFloat(float64(countMatches(textLower, words))/3, 1)
}

func countMatches(textLower string, words []string) int {
	count := 0
	for _, w := range words {
		count += strings.Count(textLower, strings.ToLower(w))
	}
	return count
}

func pacingBonus(duration float64) float64 {
	switch {
	case duration <= 15:
		return 0.15
	case duration <= 25:
		return 0.10
	default:
		return 0.05
	}
}

// styleBonus maps the job's requested style to its corresponding raw
// axis: funny->entertaining, educational->educational, dramatic->emotional,
// controversial->controversial. balanced contributes nothing.
func styleBonus(style string, raw map[string]float64) float64 {
	axis, ok := map[string]string{
		"funny":         "entertaining",
		"educational":   "educational",
		"dramatic":      "emotional",
		"controversial": "controversial",
	}[strings.ToLower(style)]
	if !ok {
		return 0
	}
	return 0.10 * raw[axis]
}

func categoryFor(raw map[string]float64) string {
	type scored struct {
		name  string
		value float64
	}
	candidates := []scored{
		{"educational", raw["educational"]},
		{"entertaining", raw["entertaining"]},
		{"emotional", raw["emotional"]},
		{"controversial", raw["controversial"]},
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].value > candidates[j].value })
	if candidates[0].value < 0.3 {
		return "balanced"
	}
	return candidates[0].name
}

func isContextComplete(c fuse.Candidate, cfg Config, lex Lexicon) bool {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return false
	}

	firstToken := strings.ToLower(strings.Trim(strings.Fields(text)[0], ".,!?;:\"'"))
	if containsFold(lex.MidSentenceTransitions, firstToken) {
		return false
	}

	endsOk := terminalRe.MatchString(text) || matchesConclusionPhrase(text, lex.ConclusionPhrases)
	if !endsOk {
		return false
	}

	duration := c.Duration()
	if duration < cfg.ClipMin || duration > cfg.ClipMax {
		return false
	}

	if maxSpeechGap(c.OverlappingSegments) > 3.0 {
		return false
	}

	if !hasContentWord(text, lex.Filler) {
		return false
	}

	return true
}

func containsFold(set []string, token string) bool {
	for _, s := range set {
		if strings.EqualFold(s, token) {
			return true
		}
	}
	return false
}

func matchesConclusionPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// maxSpeechGap returns the largest silent gap between consecutive
// overlapping segments, in seconds. A copy of the segments is sorted by
// start time first, so the input order does not matter.
func maxSpeechGap(segments []speech.Segment) float64 {
	if len(segments) < 2 {
		return 0
	}
	ordered := make([]speech.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	maxGap := 0.0
	for i := 1; i < len(ordered); i++ {
		gap := ordered[i].Start - ordered[i-1].End
		if gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap
}

func hasContentWord(text string, filler []string) bool {
	words := strings.Fields(text)
	nonFiller := 0
	for _, w := range words {
		clean := strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
		if len(clean) <= 2 {
			continue
		}
		if containsFold(filler, clean) {
			continue
		}
		nonFiller++
	}
	return nonFiller > 0
}

// rationale builds a deterministic, human-readable explanation of why a
// candidate scored the way it did: one short phrase per axis that
// cleared 0.5, joined in a fixed priority order.
func rationale(raw map[string]float64, scene visual.Scene, audioEngagement, visualEngagement float64) string {
	var phrases []string
	axisPhrase := []struct {
		axis   string
		phrase string
	}{
		{"hook", "strong hook"},
		{"emotional", "emotional content"},
		{"controversial", "controversial take"},
		{"educational", "clear explanation"},
		{"entertaining", "entertaining moment"},
		{"money", "financial angle"},
		{"urgency", "urgent tone"},
	}
	for _, ap := range axisPhrase {
		if raw[ap.axis] > 0.5 {
			phrases = append(phrases, ap.phrase)
		}
	}
	if scene.FaceRatio > 0.5 {
		phrases = append(phrases, "closeup speaker")
	}
	if scene.Motion > 0.6 {
		phrases = append(phrases, "dynamic visuals")
	}
	if len(phrases) == 0 {
		return "balanced moment"
	}
	return strings.Join(phrases, " + ")
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
