package domain

import (
	"time"

	"github.com/google/uuid"
)

// Employee is one entry of the employee directory. The verification engine
// only reads it; ownership of the record lives with the directory handlers.
type Employee struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email,omitempty"`
	Department *string   `json:"department,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
