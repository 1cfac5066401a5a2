package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction of an attendance punch.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// AttendanceLog is one committed punch. Rows are append-only; the current
// punch state of an employee is always derived from the most recent log of
// the day, never from a separate flag.
type AttendanceLog struct {
	ID             uuid.UUID `json:"id"`
	EmployeeID     uuid.UUID `json:"employee_id"`
	Direction      Direction `json:"direction"`
	Timestamp      time.Time `json:"timestamp"`
	Confidence     float64   `json:"confidence"`
	LivenessPassed bool      `json:"liveness_passed"`
	EvidenceKey    string    `json:"evidence_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TodayStats aggregates the current day for the dashboard.
type TodayStats struct {
	TotalEmployees int `json:"total_employees"`
	PresentToday   int `json:"present_today"`
	PunchedIn      int `json:"punched_in"`
	PunchedOut     int `json:"punched_out"`
}

// HistoryFilter narrows an attendance history query.
type HistoryFilter struct {
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Offset     int
	Limit      int
}
