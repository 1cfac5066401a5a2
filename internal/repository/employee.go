package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tupi-labs/ponto/internal/domain"
)

type EmployeeRepository struct {
	pool PgxPool
}

func NewEmployeeRepository(pool PgxPool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO employees (id, employee_id, name, email, department, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if employee.ID == uuid.Nil {
		employee.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		employee.ID,
		employee.EmployeeID,
		employee.Name,
		employee.Email,
		employee.Department,
		employee.IsActive,
	).Scan(&employee.CreatedAt, &employee.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmployeeExists
		}
		return fmt.Errorf("create employee: %w", err)
	}

	return nil
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error) {
	query := `
		SELECT id, employee_id, name, email, department, is_active, created_at, updated_at
		FROM employees
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get employee by id")
}

func (r *EmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	query := `
		SELECT id, employee_id, name, email, department, is_active, created_at, updated_at
		FROM employees
		WHERE employee_id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, employeeID), "get employee by employee_id")
}

func (r *EmployeeRepository) scanOne(row pgx.Row, op string) (*domain.Employee, error) {
	var employee domain.Employee
	err := row.Scan(
		&employee.ID,
		&employee.EmployeeID,
		&employee.Name,
		&employee.Email,
		&employee.Department,
		&employee.IsActive,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &employee, nil
}

func (r *EmployeeRepository) List(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	query := `
		SELECT id, employee_id, name, email, department, is_active, created_at, updated_at
		FROM employees
	`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(
			&e.ID,
			&e.EmployeeID,
			&e.Name,
			&e.Email,
			&e.Department,
			&e.IsActive,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *EmployeeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE employees
		SET is_active = false, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEmployeeNotFound
	}
	return nil
}
