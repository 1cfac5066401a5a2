package liveness

import (
	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/extractor"
)

// MotionDetector checks for natural micro-movement between consecutive
// frames. A photo on a stick is either perfectly still (below the lower
// bound) or jerks unnaturally when repositioned (above the upper bound);
// a live head drifts inside the band.
type MotionDetector struct {
	// MinDisplacement and MaxDisplacement bound the mean landmark
	// displacement, in pixels, that counts as natural movement.
	MinDisplacement float64
	MaxDisplacement float64
}

func NewMotionDetector(min, max float64) *MotionDetector {
	return &MotionDetector{MinDisplacement: min, MaxDisplacement: max}
}

func (d *MotionDetector) Name() string { return "motion" }

func (d *MotionDetector) Evaluate(frames []*extractor.Analysis) domain.SignalScore {
	score := domain.SignalScore{Name: d.Name()}

	for i := 1; i < len(frames); i++ {
		disp, ok := meanDisplacement(frames[i-1].Landmarks, frames[i].Landmarks)
		if !ok {
			continue
		}
		if disp > score.Score {
			score.Score = disp
		}
		if disp > d.MinDisplacement && disp < d.MaxDisplacement {
			score.Passed = true
		}
	}
	return score
}

// meanDisplacement averages the per-landmark movement between two frames.
// Returns false when the landmark sets are empty or differently sized.
func meanDisplacement(prev, cur []extractor.Point) (float64, bool) {
	if len(prev) == 0 || len(prev) != len(cur) {
		return 0, false
	}
	var sum float64
	for i := range prev {
		sum += dist(prev[i], cur[i])
	}
	return sum / float64(len(prev)), true
}
