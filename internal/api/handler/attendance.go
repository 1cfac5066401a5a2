package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/engine"
)

// AttendanceLedger is the read side the handler needs beyond the engine.
type AttendanceLedger interface {
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.AttendanceLog, error)
	TodayStats(ctx context.Context, now time.Time) (*domain.TodayStats, error)
}

// AttendanceHandler handles punch and attendance query requests
type AttendanceHandler struct {
	engine *engine.Engine
	ledger AttendanceLedger
	logger *slog.Logger
}

func NewAttendanceHandler(eng *engine.Engine, ledger AttendanceLedger, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{engine: eng, ledger: ledger, logger: logger}
}

// PunchRequest carries a burst of base64 frames. employee_id, when present,
// asserts an identity: the probe must match that employee or be rejected.
type PunchRequest struct {
	Frames     []string `json:"frames"`
	EmployeeID string   `json:"employee_id,omitempty"`
}

// PunchResponse is the decision surfaced to the kiosk.
type PunchResponse struct {
	Accepted       bool                    `json:"accepted"`
	Direction      string                  `json:"direction,omitempty"`
	Reason         string                  `json:"reason,omitempty"`
	Message        string                  `json:"message,omitempty"`
	RetryInSeconds int64                   `json:"retry_in_seconds,omitempty"`
	Confidence     float64                 `json:"confidence"`
	Employee       *EmployeeResponse       `json:"employee,omitempty"`
	Liveness       *domain.LivenessVerdict `json:"liveness,omitempty"`
	LogID          string                  `json:"log_id,omitempty"`
	Timestamp      string                  `json:"timestamp,omitempty"`
}

// Punch POST /v1/attendance/punch - verify a burst and commit a punch
func (h *AttendanceHandler) Punch(c *fiber.Ctx) error {
	var req PunchRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Frames) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("frames is required"))
	}

	frames, err := decodeImages(req.Frames)
	if err != nil {
		return err
	}

	punch := engine.PunchRequest{Frames: frames}
	if req.EmployeeID != "" {
		id, err := uuid.Parse(req.EmployeeID)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("employee_id must be a UUID"))
		}
		punch.IdentityHint = &id
	}

	result, err := h.engine.Verify(c.Context(), punch)
	if err != nil {
		return err
	}

	resp := PunchResponse{
		Accepted: result.Decision.Accepted,
		Liveness: result.Liveness,
	}
	if result.Match != nil {
		resp.Confidence = result.Match.Similarity
	}
	if result.Employee != nil {
		resp.Employee = toEmployeeResponse(result.Employee)
	}
	if result.Decision.Accepted {
		resp.Direction = string(result.Decision.Direction)
		resp.LogID = result.Log.ID.String()
		resp.Timestamp = result.Log.Timestamp.UTC().Format(time.RFC3339)
	} else {
		resp.Reason = string(result.Decision.Reason)
		resp.Message = result.Decision.Reason.Message()
		if result.Decision.RetryIn > 0 {
			resp.RetryInSeconds = int64(result.Decision.RetryIn.Seconds())
		}
	}

	return c.JSON(resp)
}

// RecognizeRequest carries a single base64 frame.
type RecognizeRequest struct {
	Frame string `json:"frame"`
}

// RecognizeResponse reports who the frame shows, without punching.
type RecognizeResponse struct {
	Recognized bool              `json:"recognized"`
	Confidence float64           `json:"confidence"`
	Distance   float64           `json:"distance"`
	Employee   *EmployeeResponse `json:"employee,omitempty"`
}

// Recognize POST /v1/attendance/recognize - identify a face without punching
func (h *AttendanceHandler) Recognize(c *fiber.Ctx) error {
	var req RecognizeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	frame, err := decodeImage(req.Frame)
	if err != nil {
		return err
	}

	result, err := h.engine.Recognize(c.Context(), frame)
	if err != nil {
		return err
	}

	resp := RecognizeResponse{
		Recognized: result.Match.Matched(),
		Confidence: result.Match.Similarity,
		Distance:   result.Match.Distance,
	}
	if result.Employee != nil {
		resp.Employee = toEmployeeResponse(result.Employee)
	}
	return c.JSON(resp)
}

// LivenessRequest carries a burst of base64 frames.
type LivenessRequest struct {
	Frames []string `json:"frames"`
}

// CheckLiveness POST /v1/attendance/liveness - assess a burst in isolation
func (h *AttendanceHandler) CheckLiveness(c *fiber.Ctx) error {
	var req LivenessRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Frames) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("frames is required"))
	}

	frames, err := decodeImages(req.Frames)
	if err != nil {
		return err
	}

	verdict, err := h.engine.CheckLiveness(c.Context(), frames)
	if err != nil {
		return err
	}
	return c.JSON(verdict)
}

// AttendanceLogResponse is one ledger entry.
type AttendanceLogResponse struct {
	ID             string  `json:"id"`
	EmployeeID     string  `json:"employee_id"`
	Direction      string  `json:"direction"`
	Timestamp      string  `json:"timestamp"`
	Confidence     float64 `json:"confidence"`
	LivenessPassed bool    `json:"liveness_passed"`
	EvidenceKey    string  `json:"evidence_key,omitempty"`
}

func toLogResponses(logs []domain.AttendanceLog) []AttendanceLogResponse {
	out := make([]AttendanceLogResponse, 0, len(logs))
	for _, log := range logs {
		out = append(out, AttendanceLogResponse{
			ID:             log.ID.String(),
			EmployeeID:     log.EmployeeID.String(),
			Direction:      string(log.Direction),
			Timestamp:      log.Timestamp.UTC().Format(time.RFC3339),
			Confidence:     log.Confidence,
			LivenessPassed: log.LivenessPassed,
			EvidenceKey:    log.EvidenceKey,
		})
	}
	return out
}

// History GET /v1/attendance/history - filtered punch history
func (h *AttendanceHandler) History(c *fiber.Ctx) error {
	filter := domain.HistoryFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}

	if s := c.Query("employee_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("employee_id must be a UUID"))
		}
		filter.EmployeeID = &id
	}
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("from must be RFC3339"))
		}
		filter.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("to must be RFC3339"))
		}
		filter.To = &t
	}

	logs, err := h.ledger.History(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"logs": toLogResponses(logs)})
}

// Today GET /v1/attendance/today/:employee_id - today's logs for one employee
func (h *AttendanceHandler) Today(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("employee_id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("employee_id must be a UUID"))
	}

	now := time.Now()
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	to := from.Add(24 * time.Hour)

	logs, err := h.ledger.History(c.Context(), domain.HistoryFilter{
		EmployeeID: &id,
		From:       &from,
		To:         &to,
	})
	if err != nil {
		return err
	}

	status := "absent"
	if len(logs) > 0 {
		// History is newest first.
		if logs[0].Direction == domain.DirectionIn {
			status = "in"
		} else {
			status = "out"
		}
	}

	return c.JSON(fiber.Map{
		"status": status,
		"logs":   toLogResponses(logs),
	})
}

// TodayStats GET /v1/attendance/stats/today - dashboard counters
func (h *AttendanceHandler) TodayStats(c *fiber.Ctx) error {
	stats, err := h.ledger.TodayStats(c.Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
