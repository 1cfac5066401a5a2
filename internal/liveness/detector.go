// Package liveness decides whether a burst of frames shows a live person or
// a presentation attack (photo, screen replay). Each detector judges one
// physical signal independently; the engine fuses them by quorum.
package liveness

import (
	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/extractor"
)

// Detector evaluates one liveness signal over an ordered frame burst.
// Frames arrive in capture order; detectors that need temporal structure
// (blink, motion) rely on that ordering.
type Detector interface {
	Name() string
	Evaluate(frames []*extractor.Analysis) domain.SignalScore
}
