package domain

import (
	"time"

	"github.com/google/uuid"
)

// Template is one stored face embedding bound to a single employee.
// Templates are immutable once created; re-enrollment replaces the full set
// for an employee instead of mutating rows in place.
type Template struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Embedding  []float64 `json:"-"`
	AngleLabel string    `json:"angle_label"` // front, left, right, up, down
	Quality    float64   `json:"quality"`
	CreatedAt  time.Time `json:"created_at"`
}
