// Package engine implements the verification pipeline: frame analysis,
// identity matching, liveness fusion and the punch state machine.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/events"
	"github.com/tupi-labs/ponto/internal/extractor"
	"github.com/tupi-labs/ponto/internal/liveness"
	"github.com/tupi-labs/ponto/internal/matcher"
	"github.com/tupi-labs/ponto/internal/observability"
	"github.com/tupi-labs/ponto/internal/storage"
)

// EmployeeGetter loads employee records for matched identities.
type EmployeeGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error)
}

// AttendanceLedger is the append-only punch log.
type AttendanceLedger interface {
	Append(ctx context.Context, log *domain.AttendanceLog) error
	// MostRecentToday returns the employee's latest log whose timestamp
	// falls on the same calendar day as now, or nil.
	MostRecentToday(ctx context.Context, employeeID uuid.UUID, now time.Time) (*domain.AttendanceLog, error)
}

// Options carries the decision thresholds.
type Options struct {
	// MinConfidence gates acting on a match: a recognized face below this
	// similarity is reported but no punch is committed.
	MinConfidence float64
	// MinConsecutiveMatches is the run of consecutive frames that must
	// agree on one identity before the burst counts as conclusive.
	MinConsecutiveMatches int
	// MinPunchOutInterval is the shortest allowed in-to-out gap.
	MinPunchOutInterval time.Duration
}

// PunchRequest is one verification attempt.
type PunchRequest struct {
	// Frames are the burst images in capture order.
	Frames [][]byte
	// IdentityHint restricts matching to one asserted employee. A probe
	// that does not match the hinted identity is rejected as
	// wrong_identity instead of falling back to a global search.
	IdentityHint *uuid.UUID
}

// Engine drives a verification attempt end to end.
type Engine struct {
	extractor extractor.Extractor
	matcher   *matcher.Matcher
	liveness  *liveness.Engine
	employees EmployeeGetter
	ledger    AttendanceLedger
	evidence  storage.EvidenceStore
	publisher events.Publisher
	opts      Options
	locks     *lockArena
	logger    *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(
	ext extractor.Extractor,
	m *matcher.Matcher,
	live *liveness.Engine,
	employees EmployeeGetter,
	ledger AttendanceLedger,
	evidence storage.EvidenceStore,
	publisher events.Publisher,
	opts Options,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		extractor: ext,
		matcher:   m,
		liveness:  live,
		employees: employees,
		ledger:    ledger,
		evidence:  evidence,
		publisher: publisher,
		opts:      opts,
		locks:     newLockArena(),
		logger:    logger,
		now:       time.Now,
	}
}

// Verify runs the full pipeline and, when everything passes, commits a punch.
// Rejections are decision outcomes carried in the result, not errors; errors
// are reserved for malformed input and infrastructure failures.
func (e *Engine) Verify(ctx context.Context, req PunchRequest) (*domain.VerifyResult, error) {
	if len(req.Frames) == 0 {
		return nil, domain.ErrBadRequest.WithError(errors.New("no frames provided"))
	}

	start := e.now()
	usable, err := e.analyzeBurst(ctx, req.Frames)
	if err != nil {
		return nil, err
	}
	observability.ObserveStage("extract", e.now().Sub(start))
	if len(usable) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	matchStart := e.now()
	matches, err := e.matchBurst(usable, req.IdentityHint)
	if err != nil {
		return nil, err
	}
	observability.ObserveStage("match", e.now().Sub(matchStart))

	result := &domain.VerifyResult{}
	winner, run, rep := burstConsensus(matches)
	result.Match = rep

	if winner == nil {
		reason := domain.RejectNoMatch
		if req.IdentityHint != nil {
			reason = domain.RejectWrongIdentity
		}
		return e.reject(result, reason, 0), nil
	}
	// A single-image punch has no burst to agree with itself; the
	// consecutive-run rule only applies to multi-frame requests.
	if len(req.Frames) > 1 && run < e.opts.MinConsecutiveMatches {
		return e.reject(result, domain.RejectInconclusiveBurst, 0), nil
	}

	confidence, err := e.matcher.Confidence(*winner, embeddings(usable))
	if err != nil {
		return nil, err
	}
	if confidence < e.opts.MinConfidence {
		return e.reject(result, domain.RejectLowConfidence, 0), nil
	}

	liveStart := e.now()
	verdict := e.liveness.Assess(analyses(usable))
	observability.ObserveStage("liveness", e.now().Sub(liveStart))
	result.Liveness = verdict

	if verdict.Indeterminate {
		return e.reject(result, domain.RejectLivenessIndeterminate, 0), nil
	}
	if !verdict.Passed {
		return e.reject(result, domain.RejectLivenessFailed, 0), nil
	}

	employee, err := e.employees.GetByID(ctx, *winner)
	if err != nil {
		return nil, err
	}
	result.Employee = employee
	if !employee.IsActive {
		// Deactivated employees stay enrolled until their templates are
		// purged; their faces must not open the door in the meantime.
		return e.reject(result, domain.RejectNoMatch, 0), nil
	}

	// Serialize the read-then-append window per identity.
	l := e.locks.lock(*winner)
	defer l.Unlock()

	now := e.now()
	last, err := e.ledger.MostRecentToday(ctx, *winner, now)
	if err != nil {
		return nil, err
	}

	direction := domain.DirectionIn
	if last != nil && last.Direction == domain.DirectionIn {
		elapsed := now.Sub(last.Timestamp)
		if elapsed < e.opts.MinPunchOutInterval {
			return e.reject(result, domain.RejectTooSoonToPunchOut, e.opts.MinPunchOutInterval-elapsed), nil
		}
		direction = domain.DirectionOut
	}

	evidenceKey := e.storeEvidence(ctx, *winner, now, req.Frames, usable)

	log := &domain.AttendanceLog{
		ID:             uuid.New(),
		EmployeeID:     *winner,
		Direction:      direction,
		Timestamp:      now,
		Confidence:     confidence,
		LivenessPassed: true,
		EvidenceKey:    evidenceKey,
	}
	if err := e.ledger.Append(ctx, log); err != nil {
		return nil, err
	}

	observability.RecordPunch(string(direction))
	e.publisher.PunchCommitted(ctx, log)
	e.logger.Info("punch committed",
		slog.String("employee_id", winner.String()),
		slog.String("direction", string(direction)),
		slog.Float64("confidence", confidence),
	)

	result.Decision = domain.Decision{Accepted: true, Direction: direction}
	result.Log = log
	return result, nil
}

// Recognize matches a single frame without touching the attendance ledger.
func (e *Engine) Recognize(ctx context.Context, frame []byte) (*domain.VerifyResult, error) {
	analysis, err := e.extractor.Analyze(ctx, frame)
	if err != nil {
		return nil, err
	}

	match, err := e.matcher.Match(analysis.Embedding)
	if err != nil {
		return nil, err
	}

	result := &domain.VerifyResult{Match: match}
	if match.Matched() {
		employee, err := e.employees.GetByID(ctx, *match.EmployeeID)
		if err != nil {
			return nil, err
		}
		result.Employee = employee
	}
	return result, nil
}

// CheckLiveness assesses a burst without matching or punching.
func (e *Engine) CheckLiveness(ctx context.Context, frames [][]byte) (*domain.LivenessVerdict, error) {
	if len(frames) == 0 {
		return nil, domain.ErrBadRequest.WithError(errors.New("no frames provided"))
	}

	usable, err := e.analyzeBurst(ctx, frames)
	if err != nil {
		return nil, err
	}
	if len(usable) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	return e.liveness.Assess(analyses(usable)), nil
}

// usableFrame pairs an analysis with the index of the raw frame it came
// from, so evidence storage can reach back to the original bytes.
type usableFrame struct {
	index    int
	analysis *extractor.Analysis
}

// analyzeBurst runs the extractor over all frames concurrently. Frames with
// no detectable face or undecodable bytes are dropped; any other failure
// aborts the attempt.
func (e *Engine) analyzeBurst(ctx context.Context, frames [][]byte) ([]usableFrame, error) {
	results := make([]*extractor.Analysis, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	for i, frame := range frames {
		g.Go(func() error {
			a, err := e.extractor.Analyze(gctx, frame)
			if err != nil {
				if errors.Is(err, domain.ErrNoFaceDetected) || errors.Is(err, domain.ErrInvalidImage) {
					return nil
				}
				return err
			}
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usable := make([]usableFrame, 0, len(results))
	for i, a := range results {
		if a != nil {
			usable = append(usable, usableFrame{index: i, analysis: a})
		}
	}
	return usable, nil
}

func (e *Engine) matchBurst(usable []usableFrame, hint *uuid.UUID) ([]*domain.MatchResult, error) {
	matches := make([]*domain.MatchResult, len(usable))
	for i, u := range usable {
		var (
			m   *domain.MatchResult
			err error
		)
		if hint != nil {
			m, err = e.matcher.MatchEmployee(u.analysis.Embedding, *hint)
		} else {
			m, err = e.matcher.Match(u.analysis.Embedding)
		}
		if err != nil {
			return nil, err
		}
		matches[i] = m
	}
	return matches, nil
}

// burstConsensus finds the longest consecutive run of frames agreeing on one
// identity. It returns the identity, the run length, and the highest-
// similarity match within that run. When no frame matched at all, the
// representative is the best near-miss so callers can still report distance.
func burstConsensus(matches []*domain.MatchResult) (*uuid.UUID, int, *domain.MatchResult) {
	var (
		bestID  *uuid.UUID
		bestRun int
		bestRep *domain.MatchResult

		curID  *uuid.UUID
		curRun int
		curRep *domain.MatchResult
	)

	flush := func() {
		if curID != nil && curRun > bestRun {
			bestID, bestRun, bestRep = curID, curRun, curRep
		}
		curID, curRun, curRep = nil, 0, nil
	}

	var nearMiss *domain.MatchResult
	for _, m := range matches {
		if !m.Matched() {
			if nearMiss == nil || m.Similarity > nearMiss.Similarity {
				nearMiss = m
			}
			flush()
			continue
		}
		if curID == nil || *curID != *m.EmployeeID {
			flush()
			curID, curRun, curRep = m.EmployeeID, 0, m
		}
		curRun++
		if m.Similarity > curRep.Similarity {
			curRep = m
		}
	}
	flush()

	if bestID == nil {
		return nil, 0, nearMiss
	}
	return bestID, bestRun, bestRep
}

func analyses(usable []usableFrame) []*extractor.Analysis {
	out := make([]*extractor.Analysis, len(usable))
	for i, u := range usable {
		out[i] = u.analysis
	}
	return out
}

func embeddings(usable []usableFrame) [][]float64 {
	out := make([][]float64, len(usable))
	for i, u := range usable {
		out[i] = u.analysis.Embedding
	}
	return out
}

// storeEvidence persists the sharpest frame of the burst. Failures are
// logged and swallowed: evidence is best-effort, the punch is not.
func (e *Engine) storeEvidence(ctx context.Context, employeeID uuid.UUID, now time.Time, frames [][]byte, usable []usableFrame) string {
	best := usable[0]
	for _, u := range usable[1:] {
		if u.analysis.Confidence > best.analysis.Confidence {
			best = u
		}
	}

	key, err := e.evidence.Put(ctx, employeeID, now, frames[best.index])
	if err != nil {
		e.logger.Warn("evidence snapshot failed",
			slog.String("employee_id", employeeID.String()),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return key
}

func (e *Engine) reject(result *domain.VerifyResult, reason domain.RejectReason, retryIn time.Duration) *domain.VerifyResult {
	observability.RecordRejection(string(reason))
	result.Decision = domain.Decision{Reason: reason, RetryIn: retryIn}
	return result
}
