package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tupi-labs/ponto/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use. pgxmock
// implements it, which is what the unit tests run against.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EmployeeRepositoryInterface defines operations for employee data access
type EmployeeRepositoryInterface interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// TemplateRepositoryInterface defines operations for face template data access
type TemplateRepositoryInterface interface {
	All(ctx context.Context) ([]domain.Template, error)
	Add(ctx context.Context, employeeID uuid.UUID, templates []domain.Template) error
	RemoveAll(ctx context.Context, employeeID uuid.UUID) error
}

// AttendanceRepositoryInterface defines operations for the punch ledger
type AttendanceRepositoryInterface interface {
	Append(ctx context.Context, log *domain.AttendanceLog) error
	MostRecentToday(ctx context.Context, employeeID uuid.UUID, now time.Time) (*domain.AttendanceLog, error)
	History(ctx context.Context, filter domain.HistoryFilter) ([]domain.AttendanceLog, error)
	TodayStats(ctx context.Context, now time.Time) (*domain.TodayStats, error)
}
