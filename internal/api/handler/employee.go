package handler

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
	"github.com/tupi-labs/ponto/internal/engine"
	"github.com/tupi-labs/ponto/internal/repository"
)

// EmployeeHandler handles employee lifecycle and enrollment requests
type EmployeeHandler struct {
	employees repository.EmployeeRepositoryInterface
	engine    *engine.Engine
	logger    *slog.Logger
}

func NewEmployeeHandler(employees repository.EmployeeRepositoryInterface, eng *engine.Engine, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, engine: eng, logger: logger}
}

// CreateEmployeeRequest is the payload for registering an employee record.
type CreateEmployeeRequest struct {
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
}

// EmployeeResponse is the wire form of an employee.
type EmployeeResponse struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	Name       string  `json:"name"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at"`
}

func toEmployeeResponse(e *domain.Employee) *EmployeeResponse {
	return &EmployeeResponse{
		ID:         e.ID.String(),
		EmployeeID: e.EmployeeID,
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create POST /v1/employees - register an employee record
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	var req CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	req.Name = strings.TrimSpace(req.Name)
	if req.EmployeeID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("employee_id is required"))
	}
	if req.Name == "" {
		return domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}

	employee := &domain.Employee{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		IsActive:   true,
	}
	if err := h.employees.Create(c.Context(), employee); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toEmployeeResponse(employee))
}

// List GET /v1/employees - list employees
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", false)

	employees, err := h.employees.List(c.Context(), activeOnly)
	if err != nil {
		return err
	}

	out := make([]*EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, toEmployeeResponse(&employees[i]))
	}
	return c.JSON(fiber.Map{"employees": out})
}

// Get GET /v1/employees/:id - fetch one employee
func (h *EmployeeHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	employee, err := h.employees.GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(toEmployeeResponse(employee))
}

// Deactivate DELETE /v1/employees/:id - deactivate an employee
func (h *EmployeeHandler) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	if err := h.employees.Deactivate(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// EnrollmentFrameRequest is one labeled capture of a multi-angle enrollment.
type EnrollmentFrameRequest struct {
	Angle string `json:"angle"`
	Image string `json:"image"`
}

// RegisterFacesRequest replaces the employee's face templates.
type RegisterFacesRequest struct {
	Frames []EnrollmentFrameRequest `json:"frames"`
}

// RegisterFacesResponse reports what was enrolled.
type RegisterFacesResponse struct {
	EmployeeID string             `json:"employee_id"`
	Templates  []TemplateResponse `json:"templates"`
}

// TemplateResponse is the wire form of a stored template. The embedding
// itself is never exposed.
type TemplateResponse struct {
	ID         string  `json:"id"`
	AngleLabel string  `json:"angle_label"`
	Quality    float64 `json:"quality"`
}

// RegisterFaces POST /v1/employees/:id/faces - enroll face templates
func (h *EmployeeHandler) RegisterFaces(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	var req RegisterFacesRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if len(req.Frames) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("frames is required"))
	}

	frames := make([]engine.EnrollmentFrame, 0, len(req.Frames))
	for _, f := range req.Frames {
		data, err := decodeImage(f.Image)
		if err != nil {
			return err
		}
		frames = append(frames, engine.EnrollmentFrame{
			AngleLabel: strings.TrimSpace(f.Angle),
			Data:       data,
		})
	}

	templates, err := h.engine.Enroll(c.Context(), id, frames)
	if err != nil {
		return err
	}

	resp := RegisterFacesResponse{EmployeeID: id.String()}
	for _, t := range templates {
		resp.Templates = append(resp.Templates, TemplateResponse{
			ID:         t.ID.String(),
			AngleLabel: t.AngleLabel,
			Quality:    t.Quality,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// DeleteFaces DELETE /v1/employees/:id/faces - purge biometric data
func (h *EmployeeHandler) DeleteFaces(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	if err := h.engine.Forget(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
