package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/tupi-labs/ponto/internal/domain"
)

// TemplateRepository persists face templates in pgvector. It satisfies the
// matcher's TemplateStore, which snapshots the full set on reload.
type TemplateRepository struct {
	pool PgxPool
	dim  int
}

func NewTemplateRepository(pool PgxPool, dim int) *TemplateRepository {
	return &TemplateRepository{pool: pool, dim: dim}
}

func (r *TemplateRepository) All(ctx context.Context) ([]domain.Template, error) {
	query := `
		SELECT id, employee_id, embedding, angle_label, quality, created_at
		FROM face_templates
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		var t domain.Template
		var embedding pgvector.Vector
		if err := rows.Scan(
			&t.ID,
			&t.EmployeeID,
			&embedding,
			&t.AngleLabel,
			&t.Quality,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Embedding = toFloat64(embedding.Slice())
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Add replaces the employee's template set. The delete and the inserts run in
// one transaction: a failed multi-angle registration must not leave a partial
// or empty set behind.
func (r *TemplateRepository) Add(ctx context.Context, employeeID uuid.UUID, templates []domain.Template) error {
	for _, t := range templates {
		if len(t.Embedding) != r.dim {
			return domain.ErrInvalidTemplate
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin enrollment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteQuery := `
		DELETE FROM face_templates
		WHERE employee_id = $1
	`
	if _, err := tx.Exec(ctx, deleteQuery, employeeID); err != nil {
		return fmt.Errorf("delete templates: %w", err)
	}

	insertQuery := `
		INSERT INTO face_templates (id, employee_id, embedding, angle_label, quality, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	for _, t := range templates {
		id := t.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		vec := pgvector.NewVector(toFloat32(t.Embedding))
		if _, err := tx.Exec(ctx, insertQuery, id, employeeID, vec, t.AngleLabel, t.Quality); err != nil {
			return fmt.Errorf("insert template: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

func (r *TemplateRepository) RemoveAll(ctx context.Context, employeeID uuid.UUID) error {
	query := `
		DELETE FROM face_templates
		WHERE employee_id = $1
	`
	if _, err := r.pool.Exec(ctx, query, employeeID); err != nil {
		return fmt.Errorf("delete templates: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
