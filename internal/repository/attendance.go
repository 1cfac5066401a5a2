package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tupi-labs/ponto/internal/domain"
)

type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) Append(ctx context.Context, log *domain.AttendanceLog) error {
	query := `
		INSERT INTO attendance_logs (id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		log.ID,
		log.EmployeeID,
		log.Direction,
		log.Timestamp,
		log.Confidence,
		log.LivenessPassed,
		log.EvidenceKey,
	).Scan(&log.CreatedAt)

	if err != nil {
		return fmt.Errorf("append attendance log: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) MostRecentToday(ctx context.Context, employeeID uuid.UUID, now time.Time) (*domain.AttendanceLog, error) {
	start, end := dayBounds(now)

	query := `
		SELECT id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at
		FROM attendance_logs
		WHERE employee_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var log domain.AttendanceLog
	err := r.pool.QueryRow(ctx, query, employeeID, start, end).Scan(
		&log.ID,
		&log.EmployeeID,
		&log.Direction,
		&log.Timestamp,
		&log.Confidence,
		&log.LivenessPassed,
		&log.EvidenceKey,
		&log.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent log today: %w", err)
	}
	return &log, nil
}

func (r *AttendanceRepository) History(ctx context.Context, filter domain.HistoryFilter) ([]domain.AttendanceLog, error) {
	query := `
		SELECT id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at
		FROM attendance_logs
		WHERE 1=1
	`
	var args []any

	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND timestamp < $%d", len(args))
	}

	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	defer rows.Close()

	var logs []domain.AttendanceLog
	for rows.Next() {
		var log domain.AttendanceLog
		if err := rows.Scan(
			&log.ID,
			&log.EmployeeID,
			&log.Direction,
			&log.Timestamp,
			&log.Confidence,
			&log.LivenessPassed,
			&log.EvidenceKey,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// TodayStats derives the dashboard counters from the day's last log per
// employee, the same rule the punch state machine uses.
func (r *AttendanceRepository) TodayStats(ctx context.Context, now time.Time) (*domain.TodayStats, error) {
	start, end := dayBounds(now)

	query := `
		WITH last_logs AS (
			SELECT DISTINCT ON (employee_id) employee_id, direction
			FROM attendance_logs
			WHERE timestamp >= $1 AND timestamp < $2
			ORDER BY employee_id, timestamp DESC
		)
		SELECT
			(SELECT COUNT(*) FROM employees WHERE is_active),
			(SELECT COUNT(*) FROM last_logs),
			(SELECT COUNT(*) FROM last_logs WHERE direction = 'in'),
			(SELECT COUNT(*) FROM last_logs WHERE direction = 'out')
	`

	var stats domain.TodayStats
	err := r.pool.QueryRow(ctx, query, start, end).Scan(
		&stats.TotalEmployees,
		&stats.PresentToday,
		&stats.PunchedIn,
		&stats.PunchedOut,
	)
	if err != nil {
		return nil, fmt.Errorf("today stats: %w", err)
	}
	return &stats, nil
}

// dayBounds returns the [start, end) of the calendar day containing t, in
// t's location. Day scoping follows the kiosk's local clock.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}
