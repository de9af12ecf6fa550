package visual

import "image"

// FaceDetector counts faces present in a frame. True object/face
// detection is an external add-on; this interface lets a real detector
// be wired in without touching the analyzer, while
// HeuristicFaceDetector stands in for it.
type FaceDetector interface {
	CountFaces(img image.Image) int
}

// HeuristicFaceDetector is a skin-tone proxy: it buckets the frame into a
// coarse grid and counts blocks in which more than 35% of pixels pass an
// RGB skin-tone test. No luma-variance or texture check is made, so a flat
// skin-coloured patch counts the same as a face. It is intentionally
// crude — a real detector satisfies the same interface.
type HeuristicFaceDetector struct {
	GridSize int
}

func NewHeuristicFaceDetector() *HeuristicFaceDetector {
	return &HeuristicFaceDetector{GridSize: 8}
}

func (h *HeuristicFaceDetector) CountFaces(img image.Image) int {
	bounds := img.Bounds()
	w, height := bounds.Dx(), bounds.Dy()
	if w == 0 || height == 0 {
		return 0
	}
	gridW, gridH := w/h.GridSize, height/h.GridSize
	if gridW == 0 || gridH == 0 {
		return 0
	}

	faceLikeBlocks := 0
	for gy := 0; gy < h.GridSize; gy++ {
		for gx := 0; gx < h.GridSize; gx++ {
			x0, y0 := bounds.Min.X+gx*gridW, bounds.Min.Y+gy*gridH
			if isSkinToneBlock(img, x0, y0, gridW, gridH) {
				faceLikeBlocks++
			}
		}
	}
	// Roughly one face per 4 skin-toned blocks of an 8x8 grid.
	return faceLikeBlocks / 4
}

func isSkinToneBlock(img image.Image, x0, y0, w, height int) bool {
	var skinPixels, total int
	for y := y0; y < y0+height; y++ {
		for x := x0; x < x0+w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := int(r>>8), int(g>>8), int(b>>8)
			total++
			if looksLikeSkin(r8, g8, b8) {
				skinPixels++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(skinPixels)/float64(total) > 0.35
}

// looksLikeSkin is a coarse RGB-space skin-tone heuristic, not a
// calibrated classifier.
func looksLikeSkin(r, g, b int) bool {
	return r > 95 && g > 40 && b > 20 &&
		r > g && r > b &&
		(maxInt(r, maxInt(g, b))-minInt(r, minInt(g, b))) > 15 &&
		abs(r-g) > 15
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
