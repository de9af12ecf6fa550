package visual

import (
	"fmt"
	"image"

	"github.com/clipforge/clipforge/config"
	clipforgeerrors "github.com/clipforge/clipforge/errors"
	"github.com/clipforge/clipforge/log"
)

// Analyzer produces scene boundaries and per-scene face/motion/brightness
// signals for a source video.
type Analyzer struct {
	Sampler      *FrameSampler
	FaceDetector FaceDetector
}

func NewAnalyzer(sampler *FrameSampler, faceDetector FaceDetector) *Analyzer {
	if faceDetector == nil {
		faceDetector = NewHeuristicFaceDetector()
	}
	return &Analyzer{Sampler: sampler, FaceDetector: faceDetector}
}

// Analyze runs boundary detection, merge/split normalization, monolog
// synthesis (if needed) and per-scene signal extraction.
func (a *Analyzer) Analyze(requestID, sourcePath string, durationSecs float64, cfg config.Pipeline) ([]Scene, error) {
	boundaries, err := a.detectBoundaries(sourcePath, durationSecs, cfg)
	if err != nil {
		log.Log(requestID, "scene boundary detection failed, continuing to monolog synthesis", "err", err)
		boundaries = nil
	}

	scenes := mergeAndSplit(boundaries, cfg.MinSceneSeconds, cfg.MaxSceneSeconds)

	if needsMonologSynthesis(scenes, durationSecs) {
		scenes = synthesizeMonolog(durationSecs)
	} else {
		scenes, err = a.attachSignals(sourcePath, scenes)
		if err != nil {
			return nil, fmt.Errorf("extracting scene signals: %w", err)
		}
	}

	if len(scenes) < 1 {
		return nil, clipforgeerrors.NewKindError(clipforgeerrors.KindVisualAnalysisFailed,
			"no scenes produced even after monolog synthesis")
	}

	return scenes, nil
}

// detectBoundaries samples frames at the adaptive rate for durationSecs
// and triggers a boundary whenever the luminance-histogram distance
// between consecutive samples exceeds cfg.SceneThreshold.
func (a *Analyzer) detectBoundaries(sourcePath string, durationSecs float64, cfg config.Pipeline) ([]float64, error) {
	rate := SamplingRateForDuration(durationSecs)
	step := 1.0 / rate

	var prevHist [256]float64
	havePrev := false
	boundaries := []float64{0}

	for t := 0.0; t < durationSecs; t += step {
		img, err := a.Sampler.SampleAt(sourcePath, t)
		if err != nil {
			continue
		}
		hist := luminanceHistogram(img)
		if havePrev {
			if histogramDistance(prevHist, hist) > cfg.SceneThreshold {
				boundaries = append(boundaries, t)
			}
		}
		prevHist = hist
		havePrev = true
	}
	if !havePrev {
		return nil, fmt.Errorf("no frames could be sampled from %s", sourcePath)
	}
	boundaries = append(boundaries, durationSecs)
	return boundaries, nil
}

// mergeAndSplit turns boundary timestamps into Scenes, merging any scene
// shorter than minSecs into its successor and splitting any scene longer
// than maxSecs at equal offsets.
func mergeAndSplit(boundaries []float64, minSecs, maxSecs float64) []Scene {
	if len(boundaries) < 2 {
		return nil
	}

	var raw []Scene
	for i := 0; i < len(boundaries)-1; i++ {
		raw = append(raw, Scene{Start: boundaries[i], End: boundaries[i+1]})
	}

	merged := make([]Scene, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		s := raw[i]
		for s.Duration() < minSecs && i+1 < len(raw) {
			i++
			s.End = raw[i].End
		}
		merged = append(merged, s)
	}

	var final []Scene
	for _, s := range merged {
		if s.Duration() <= maxSecs {
			final = append(final, s)
			continue
		}
		n := int(s.Duration()/maxSecs) + 1
		width := s.Duration() / float64(n)
		for i := 0; i < n; i++ {
			final = append(final, Scene{Start: s.Start + float64(i)*width, End: s.Start + float64(i+1)*width})
		}
	}
	return final
}

// needsMonologSynthesis reports whether detection found too little visual
// structure to clip against: scenes/min <= 0.5, or fewer than 3 scenes.
func needsMonologSynthesis(scenes []Scene, durationSecs float64) bool {
	if len(scenes) < 3 {
		return true
	}
	scenesPerMinute := float64(len(scenes)) / (durationSecs / 60)
	return scenesPerMinute <= 0.5
}

// synthesizeMonolog tiles the entire source duration with alternating
// 15/20/25/30-second windows, marked synthetic with the talking-head
// signal prior.
func synthesizeMonolog(durationSecs float64) []Scene {
	widths := []float64{15, 20, 25, 30}
	var scenes []Scene
	t := 0.0
	i := 0
	for t < durationSecs {
		width := widths[i%len(widths)]
		end := t + width
		if end > durationSecs {
			end = durationSecs
		}
		scenes = append(scenes, Scene{
			Start:      t,
			End:        end,
			FaceRatio:  1.0,
			Motion:     0.3,
			Brightness: 0.6,
			Synthetic:  true,
		})
		t = end
		i++
	}
	return scenes
}

// attachSignals samples up to 5 frames per scene, downsampled to 50%
// linear resolution (done in SampleAt), and derives the face_ratio,
// motion and brightness signals.
func (a *Analyzer) attachSignals(sourcePath string, scenes []Scene) ([]Scene, error) {
	out := make([]Scene, len(scenes))
	for i, scene := range scenes {
		timestamps := sampleTimestamps(scene, 5)

		var faceSum, brightnessSum float64
		var motionSum float64

		var frames []sampledFrame
		for _, ts := range timestamps {
			img, err := a.Sampler.SampleAt(sourcePath, ts)
			if err != nil {
				continue
			}
			frames = append(frames, sampledFrame{ts: ts, luma: meanLuma(img), faces: a.FaceDetector.CountFaces(img), img: img})
		}

		if len(frames) == 0 {
			out[i] = scene
			continue
		}

		for _, f := range frames {
			faceSum += float64(f.faces)
			brightnessSum += 1 - absFloat(f.luma-127)/127
		}
		for j := 1; j < len(frames); j++ {
			motionSum += meanAbsLumaDiff(frames[j-1].img, frames[j].img)
		}
		motionSamples := len(frames) - 1
		var motion float64
		if motionSamples > 0 {
			motion = minFloat(motionSum/float64(motionSamples)/50, 1.0)
		}

		faceRatio := minFloat(faceSum/float64(len(frames))/2, 1.0)
		brightness := brightnessSum / float64(len(frames))

		scene.FaceRatio = faceRatio
		scene.Motion = motion
		scene.Brightness = brightness
		out[i] = scene
	}
	return out, nil
}

type sampledFrame struct {
	ts    float64
	luma  float64
	faces int
	img   image.Image
}

func sampleTimestamps(scene Scene, maxFrames int) []float64 {
	n := maxFrames
	if scene.Duration() <= 0 {
		return []float64{scene.Start}
	}
	var timestamps []float64
	step := scene.Duration() / float64(n+1)
	for i := 1; i <= n; i++ {
		timestamps = append(timestamps, scene.Start+float64(i)*step)
	}
	return timestamps
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
