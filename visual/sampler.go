package visual

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FrameSampler extracts still frames from a source video at specific
// timestamps, shelling out to ffmpeg for single-frame extraction rather
// than decoding the whole stream in process.
type FrameSampler struct {
	WorkDir string
}

func NewFrameSampler(workDir string) *FrameSampler {
	return &FrameSampler{WorkDir: workDir}
}

// SampleAt extracts a single frame at timestampSecs, downsampled to 50%
// linear resolution, and decodes it into an image.Image.
func (s *FrameSampler) SampleAt(sourcePath string, timestampSecs float64) (image.Image, error) {
	outPath := filepath.Join(s.WorkDir, fmt.Sprintf("frame_%s.jpg", strconv.FormatFloat(timestampSecs, 'f', 3, 64)))
	defer os.Remove(outPath)

	err := ffmpeg.Input(sourcePath, ffmpeg.KwArgs{"ss": timestampSecs}).
		Filter("scale", ffmpeg.Args{"iw*0.5:ih*0.5"}).
		Output(outPath, ffmpeg.KwArgs{"vframes": 1, "loglevel": "error"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("sampling frame at %.3fs: %w", timestampSecs, err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("opening sampled frame: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding sampled frame: %w", err)
	}
	return img, nil
}

// SamplingRateForDuration returns the adaptive sampling rate (in frames
// per second) used for scene-boundary detection: longer sources are
// sampled more sparsely.
func SamplingRateForDuration(durationSecs float64) float64 {
	switch {
	case durationSecs < 600:
		return 1.0
	case durationSecs < 1800:
		return 0.5
	default:
		return 0.2
	}
}
