package visual

import (
	"image"
)

// luminanceHistogram builds a normalized 256-bin 8-bit luminance
// histogram whose bins sum to 100 (a percentage distribution), so
// distances between frames of different sizes remain comparable.
func luminanceHistogram(img image.Image) [256]float64 {
	var hist [256]int
	bounds := img.Bounds()
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[luma(img, x, y)]++
			total++
		}
	}
	var normalized [256]float64
	if total == 0 {
		return normalized
	}
	for i, count := range hist {
		normalized[i] = 100 * float64(count) / float64(total)
	}
	return normalized
}

// histogramDistance is the total-variation distance between two
// normalized histograms, scaled so the default boundary threshold of
// 12.0 lands in a useful range.
func histogramDistance(a, b [256]float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / 2
}

// meanLuma returns the average 8-bit luminance over the whole frame.
func meanLuma(img image.Image) float64 {
	bounds := img.Bounds()
	var sum, count int64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += int64(luma(img, x, y))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// meanAbsLumaDiff returns the mean absolute per-pixel luminance
// difference between two frames of matching dimensions, used as the
// motion proxy (4.C). Frames of mismatched dimensions return 0.
func meanAbsLumaDiff(a, b image.Image) float64 {
	boundsA, boundsB := a.Bounds(), b.Bounds()
	if boundsA.Dx() != boundsB.Dx() || boundsA.Dy() != boundsB.Dy() {
		return 0
	}
	var sum, count int64
	for y := boundsA.Min.Y; y < boundsA.Max.Y; y++ {
		for x := boundsA.Min.X; x < boundsA.Max.X; x++ {
			la := int64(luma(a, x, y))
			lb := int64(luma(b, x-boundsA.Min.X+boundsB.Min.X, y-boundsA.Min.Y+boundsB.Min.Y))
			diff := la - lb
			if diff < 0 {
				diff = -diff
			}
			sum += diff
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func luma(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	// ITU-R BT.601 luma from 16-bit-per-channel RGBA values.
	y16 := (299*int(r>>8) + 587*int(g>>8) + 114*int(b>>8)) / 1000
	if y16 > 255 {
		y16 = 255
	}
	return uint8(y16)
}
