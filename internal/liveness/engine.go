package liveness

import (
	"log/slog"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/extractor"
)

// Engine fuses detector signals into a single verdict. At least Quorum of
// the detectors must pass; a burst shorter than FramesRequired is
// indeterminate, never a failure, because temporal signals cannot be judged
// on too few frames.
type Engine struct {
	detectors      []Detector
	framesRequired int
	quorum         int
	logger         *slog.Logger
}

// NewEngine wires the given detectors into a fusion engine.
func NewEngine(detectors []Detector, framesRequired, quorum int, logger *slog.Logger) *Engine {
	return &Engine{
		detectors:      detectors,
		framesRequired: framesRequired,
		quorum:         quorum,
		logger:         logger,
	}
}

// Default builds the standard three-signal engine: blink, texture, motion.
func Default(blinkEAR, textureThreshold, motionMin, motionMax float64, framesRequired, quorum int, logger *slog.Logger) *Engine {
	return NewEngine([]Detector{
		NewBlinkDetector(blinkEAR),
		NewTextureDetector(textureThreshold),
		NewMotionDetector(motionMin, motionMax),
	}, framesRequired, quorum, logger)
}

// Assess evaluates the burst. The verdict always carries every signal's
// score so callers can surface which checks failed.
func (e *Engine) Assess(frames []*extractor.Analysis) *domain.LivenessVerdict {
	verdict := &domain.LivenessVerdict{
		FramesEvaluated: len(frames),
	}

	if len(frames) < e.framesRequired {
		verdict.Indeterminate = true
		e.logger.Debug("liveness indeterminate",
			slog.Int("frames", len(frames)),
			slog.Int("required", e.framesRequired),
		)
		return verdict
	}

	passed := 0
	for _, d := range e.detectors {
		signal := d.Evaluate(frames)
		verdict.Signals = append(verdict.Signals, signal)
		if signal.Passed {
			passed++
		} else {
			verdict.FailedSignals = append(verdict.FailedSignals, signal.Name)
		}
	}

	verdict.Passed = passed >= e.quorum
	if !verdict.Passed {
		e.logger.Info("liveness check failed",
			slog.Int("passed", passed),
			slog.Int("quorum", e.quorum),
			slog.Any("failed_signals", verdict.FailedSignals),
		)
	}
	return verdict
}
