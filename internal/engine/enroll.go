package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
)

// EnrollmentFrame is one labeled capture of a multi-angle enrollment.
type EnrollmentFrame struct {
	AngleLabel string
	Data       []byte
}

// Enroll extracts a template from every frame and replaces the employee's
// enrollment set. Unlike verification, a frame without a detectable face
// fails the whole enrollment: partial multi-angle sets degrade matching for
// every later punch.
func (e *Engine) Enroll(ctx context.Context, employeeID uuid.UUID, frames []EnrollmentFrame) ([]domain.Template, error) {
	if len(frames) == 0 {
		return nil, domain.ErrBadRequest
	}

	if _, err := e.employees.GetByID(ctx, employeeID); err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(frames))
	for _, frame := range frames {
		analysis, err := e.extractor.Analyze(ctx, frame.Data)
		if err != nil {
			return nil, err
		}
		templates = append(templates, domain.Template{
			ID:         uuid.New(),
			EmployeeID: employeeID,
			Embedding:  analysis.Embedding,
			AngleLabel: frame.AngleLabel,
			Quality:    analysis.Confidence,
		})
	}

	if err := e.matcher.Enroll(ctx, employeeID, templates); err != nil {
		return nil, err
	}

	e.logger.Info("employee enrolled",
		slog.String("employee_id", employeeID.String()),
		slog.Int("templates", len(templates)),
	)
	return templates, nil
}

// Forget purges the employee's templates. The employee record stays; only
// the biometric data is removed.
func (e *Engine) Forget(ctx context.Context, employeeID uuid.UUID) error {
	if _, err := e.employees.GetByID(ctx, employeeID); err != nil {
		return err
	}
	return e.matcher.Forget(ctx, employeeID)
}
