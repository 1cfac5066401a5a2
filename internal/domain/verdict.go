package domain

import (
	"time"

	"github.com/google/uuid"
)

// MatchResult is the outcome of one nearest-template search. It is produced
// fresh per request and never persisted. A nil EmployeeID means "no
// acceptable match": a template that was numerically closest but beyond the
// distance threshold is not reported.
type MatchResult struct {
	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	Distance   float64    `json:"distance"`
	Similarity float64    `json:"similarity"`
}

// Matched reports whether an identity passed the distance threshold.
func (m *MatchResult) Matched() bool {
	return m != nil && m.EmployeeID != nil
}

// SignalScore is the contribution of one liveness detector.
type SignalScore struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
}

// LivenessVerdict fuses the individual detector signals for one frame burst.
// Indeterminate means the burst was too short to judge: callers must retry
// with more frames rather than treat it as a spoof.
type LivenessVerdict struct {
	Passed          bool          `json:"passed"`
	Indeterminate   bool          `json:"indeterminate"`
	Signals         []SignalScore `json:"signals"`
	FailedSignals   []string      `json:"failed_signals,omitempty"`
	FramesEvaluated int           `json:"frames_evaluated"`
}

// RejectReason enumerates why a verification attempt did not produce a punch.
// These are decision outcomes, not errors: callers branch on them.
type RejectReason string

const (
	RejectNoMatch               RejectReason = "no_match"
	RejectWrongIdentity         RejectReason = "wrong_identity"
	RejectLowConfidence         RejectReason = "low_confidence"
	RejectLivenessFailed        RejectReason = "liveness_failed"
	RejectLivenessIndeterminate RejectReason = "liveness_indeterminate"
	RejectTooSoonToPunchOut     RejectReason = "too_soon_to_punch_out"
	RejectInconclusiveBurst     RejectReason = "inconclusive_burst"
)

// Message returns the human-readable form surfaced to callers.
func (r RejectReason) Message() string {
	switch r {
	case RejectNoMatch:
		return "Face not recognized - not a registered employee"
	case RejectWrongIdentity:
		return "Face does not match the requested employee"
	case RejectLowConfidence:
		return "Recognition confidence too low to act"
	case RejectLivenessFailed:
		return "Liveness check failed - possible spoofing attempt"
	case RejectLivenessIndeterminate:
		return "Liveness indeterminate - retry with more frames"
	case RejectTooSoonToPunchOut:
		return "Already punched in - too soon to punch out"
	case RejectInconclusiveBurst:
		return "Identity varied across the frame burst"
	default:
		return string(r)
	}
}

// Decision is the output of the attendance state machine for one attempt.
type Decision struct {
	Accepted  bool          `json:"accepted"`
	Direction Direction     `json:"direction,omitempty"`
	Reason    RejectReason  `json:"reason,omitempty"`
	RetryIn   time.Duration `json:"-"` // set for too_soon_to_punch_out
}

// VerifyResult bundles everything one verification attempt produced.
type VerifyResult struct {
	Match    *MatchResult     `json:"match"`
	Liveness *LivenessVerdict `json:"liveness,omitempty"`
	Decision Decision         `json:"decision"`
	Employee *Employee        `json:"employee,omitempty"`
	Log      *AttendanceLog   `json:"log,omitempty"`
}
