package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"image"
	"image/color"
	"math"

	"github.com/tupi-labs/ponto/internal/domain"
)

// Mock is a deterministic extractor for development and tests. The embedding
// is derived from a hash of the frame bytes, so identical frames always map
// to identical embeddings and different frames are far apart. Landmarks are
// synthesized with open eyes (EAR well above the blink threshold) and the
// crop carries mild gradient texture.
type Mock struct {
	dim int
}

// NewMock returns a mock extractor producing dim-dimensional embeddings.
func NewMock(dim int) *Mock {
	return &Mock{dim: dim}
}

func (m *Mock) Dim() int {
	return m.dim
}

func (m *Mock) Analyze(ctx context.Context, frame []byte) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(frame) == 0 {
		return nil, domain.ErrInvalidImage
	}

	return &Analysis{
		Embedding:  m.embed(frame),
		Landmarks:  mockLandmarks(),
		Crop:       mockCrop(),
		Confidence: 0.99,
	}, nil
}

// embed expands a sha256 digest into dim floats and L2-normalizes them.
func (m *Mock) embed(frame []byte) []float64 {
	hash := sha256.Sum256(frame)
	embedding := make([]float64, m.dim)
	for i := range embedding {
		seed := binary.BigEndian.Uint32(hash[(i*4)%28 : (i*4)%28+4])
		seed = seed*2654435761 + uint32(i)
		embedding[i] = float64(int32(seed)) / float64(math.MaxInt32)
	}
	l2Normalize(embedding)
	return embedding
}

// mockLandmarks lays out 68 points on a 200x200 face with both eyes open.
// Eye points (36-47) are placed so the eye aspect ratio is roughly 0.33.
func mockLandmarks() []Point {
	pts := make([]Point, 68)
	for i := range pts {
		pts[i] = Point{X: 100, Y: 100}
	}
	// left eye: 36-41
	setEye(pts, 36, 60, 80)
	// right eye: 42-47
	setEye(pts, 42, 120, 80)
	return pts
}

func setEye(pts []Point, base int, cx, cy float64) {
	const halfW, halfH = 15.0, 5.0
	pts[base+0] = Point{X: cx - halfW, Y: cy}          // outer corner
	pts[base+1] = Point{X: cx - halfW/2, Y: cy - halfH} // upper left
	pts[base+2] = Point{X: cx + halfW/2, Y: cy - halfH} // upper right
	pts[base+3] = Point{X: cx + halfW, Y: cy}          // inner corner
	pts[base+4] = Point{X: cx + halfW/2, Y: cy + halfH} // lower right
	pts[base+5] = Point{X: cx - halfW/2, Y: cy + halfH} // lower left
}

func mockCrop() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, CropSize, CropSize))
	for y := 0; y < CropSize; y++ {
		for x := 0; x < CropSize; x++ {
			// Checker-ish variation keeps the texture entropy realistic.
			v := uint8(96 + 8*((x/4+y/4)%8))
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return gray
}
