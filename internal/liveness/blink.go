package liveness

import (
	"math"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/extractor"
)

// Landmark ranges for the eyes in the 68-point layout.
const (
	leftEyeStart  = 36
	leftEyeEnd    = 42
	rightEyeStart = 42
	rightEyeEnd   = 48
)

// BlinkDetector looks for a full blink: the eye aspect ratio must drop below
// the closed-eye threshold and recover afterwards. A static photo never
// closes its eyes; a video replay usually does, which is why blink alone is
// not trusted and fusion exists.
type BlinkDetector struct {
	// EARThreshold is the eye aspect ratio below which the eyes count as
	// closed. 0.25 works across face shapes.
	EARThreshold float64
}

func NewBlinkDetector(earThreshold float64) *BlinkDetector {
	return &BlinkDetector{EARThreshold: earThreshold}
}

func (d *BlinkDetector) Name() string { return "blink" }

func (d *BlinkDetector) Evaluate(frames []*extractor.Analysis) domain.SignalScore {
	score := domain.SignalScore{Name: d.Name()}

	var sawClosed, sawReopen bool
	minEAR := math.Inf(1)
	for _, f := range frames {
		ear, ok := eyeAspectRatio(f.Landmarks)
		if !ok {
			continue
		}
		if ear < minEAR {
			minEAR = ear
		}
		if ear < d.EARThreshold {
			sawClosed = true
		} else if sawClosed {
			sawReopen = true
		}
	}

	score.Passed = sawClosed && sawReopen
	if !math.IsInf(minEAR, 1) {
		score.Score = minEAR
	}
	return score
}

// eyeAspectRatio averages the EAR of both eyes. Returns false when the
// landmark set is too short to contain the eye points.
func eyeAspectRatio(landmarks []extractor.Point) (float64, bool) {
	if len(landmarks) < rightEyeEnd {
		return 0, false
	}
	left := singleEyeAspectRatio(landmarks[leftEyeStart:leftEyeEnd])
	right := singleEyeAspectRatio(landmarks[rightEyeStart:rightEyeEnd])
	return (left + right) / 2, true
}

// singleEyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2 |p0-p3|) over the
// six eye landmarks: vertical openings over horizontal width.
func singleEyeAspectRatio(eye []extractor.Point) float64 {
	a := dist(eye[1], eye[5])
	b := dist(eye[2], eye[4])
	c := dist(eye[0], eye[3])
	if c == 0 {
		return 0
	}
	return (a + b) / (2 * c)
}

func dist(p, q extractor.Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}
