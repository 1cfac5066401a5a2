package liveness

import (
	"image"
	"math"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/extractor"
)

// TextureDetector separates live skin from printed or displayed faces using
// local binary patterns. Real skin produces a rich, high-entropy pattern
// histogram; paper and screens flatten it. The first frame with a usable
// crop decides, since texture does not change within a burst.
type TextureDetector struct {
	// Threshold is the minimum normalized histogram entropy (0..1).
	Threshold float64
}

func NewTextureDetector(threshold float64) *TextureDetector {
	return &TextureDetector{Threshold: threshold}
}

func (d *TextureDetector) Name() string { return "texture" }

func (d *TextureDetector) Evaluate(frames []*extractor.Analysis) domain.SignalScore {
	score := domain.SignalScore{Name: d.Name()}

	for _, f := range frames {
		if f.Crop == nil {
			continue
		}
		entropy := lbpEntropy(f.Crop)
		score.Score = entropy
		score.Passed = entropy > d.Threshold
		return score
	}
	return score
}

// lbpEntropy computes the Shannon entropy of the 256-bin local binary
// pattern histogram, normalized to [0,1] by the 8-bit maximum.
func lbpEntropy(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var hist [256]int
	total := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			hist[lbpCode(img, x, y)]++
			total++
		}
	}

	var entropy float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / 8
}

// lbpCode compares the 8 neighbors of (x,y) clockwise from the top-left
// against the center pixel.
func lbpCode(img *image.Gray, x, y int) uint8 {
	c := img.GrayAt(x, y).Y
	var code uint8
	offsets := [8][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{1, 0},
		{1, 1}, {0, 1}, {-1, 1},
		{-1, 0},
	}
	for i, off := range offsets {
		if img.GrayAt(x+off[0], y+off[1]).Y >= c {
			code |= 1 << uint(i)
		}
	}
	return code
}
