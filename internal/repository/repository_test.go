package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupi-labs/ponto/internal/domain"
)

// EmployeeRepository Tests

func TestEmployeeRepository_Create(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface, employee *domain.Employee)
		wantErr   error
	}{
		{
			name: "successful creation",
			mockSetup: func(mock pgxmock.PgxPoolIface, employee *domain.Employee) {
				rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
				mock.ExpectQuery(`INSERT INTO employees`).
					WithArgs(employee.ID, employee.EmployeeID, employee.Name, employee.Email, employee.Department, employee.IsActive).
					WillReturnRows(rows)
			},
		},
		{
			name: "duplicate employee_id",
			mockSetup: func(mock pgxmock.PgxPoolIface, employee *domain.Employee) {
				mock.ExpectQuery(`INSERT INTO employees`).
					WithArgs(employee.ID, employee.EmployeeID, employee.Name, employee.Email, employee.Department, employee.IsActive).
					WillReturnError(&pgconn.PgError{
						Code:           "23505",
						ConstraintName: "employees_employee_id_key",
					})
			},
			wantErr: domain.ErrEmployeeExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			employee := &domain.Employee{
				ID:         uuid.New(),
				EmployeeID: "E001",
				Name:       "Alice",
				IsActive:   true,
			}
			tt.mockSetup(mock, employee)

			repo := NewEmployeeRepository(mock)
			err = repo.Create(context.Background(), employee)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, now, employee.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEmployeeRepository_GetByID(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "employee_id", "name", "email", "department", "is_active", "created_at", "updated_at",
		}).AddRow(id, "E001", "Alice", nil, nil, true, now, now)

		mock.ExpectQuery(`SELECT id, employee_id, name, email, department, is_active, created_at, updated_at`).
			WithArgs(id).
			WillReturnRows(rows)

		repo := NewEmployeeRepository(mock)
		got, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.True(t, got.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, employee_id, name, email, department, is_active, created_at, updated_at`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		repo := NewEmployeeRepository(mock)
		_, err = repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmployeeRepository_Deactivate(t *testing.T) {
	id := uuid.New()

	t.Run("deactivates", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE employees`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewEmployeeRepository(mock)
		require.NoError(t, repo.Deactivate(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE employees`).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewEmployeeRepository(mock)
		err = repo.Deactivate(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
	})
}

// TemplateRepository Tests

func TestTemplateRepository_Add(t *testing.T) {
	employeeID := uuid.New()

	t.Run("replaces existing set in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		template := domain.Template{
			ID:         uuid.New(),
			EmployeeID: employeeID,
			Embedding:  []float64{0.1, 0.2, 0.3, 0.4},
			AngleLabel: "front",
			Quality:    0.9,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM face_templates`).
			WithArgs(employeeID).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(`INSERT INTO face_templates`).
			WithArgs(template.ID, employeeID, pgvector.NewVector([]float32{0.1, 0.2, 0.3, 0.4}), "front", 0.9).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		repo := NewTemplateRepository(mock, 4)
		require.NoError(t, repo.Add(context.Background(), employeeID, []domain.Template{template}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when an insert fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		first := domain.Template{
			ID:         uuid.New(),
			EmployeeID: employeeID,
			Embedding:  []float64{0.1, 0.2, 0.3, 0.4},
			AngleLabel: "front",
			Quality:    0.9,
		}
		second := domain.Template{
			ID:         uuid.New(),
			EmployeeID: employeeID,
			Embedding:  []float64{0.4, 0.3, 0.2, 0.1},
			AngleLabel: "left",
			Quality:    0.8,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM face_templates`).
			WithArgs(employeeID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`INSERT INTO face_templates`).
			WithArgs(first.ID, employeeID, pgvector.NewVector([]float32{0.1, 0.2, 0.3, 0.4}), "front", 0.9).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO face_templates`).
			WithArgs(second.ID, employeeID, pgvector.NewVector([]float32{0.4, 0.3, 0.2, 0.1}), "left", 0.8).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		repo := NewTemplateRepository(mock, 4)
		err = repo.Add(context.Background(), employeeID, []domain.Template{first, second})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects wrong dimensionality", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewTemplateRepository(mock, 4)
		err = repo.Add(context.Background(), employeeID, []domain.Template{
			{Embedding: []float64{0.1, 0.2}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTemplateRepository_All(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	employeeID := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "employee_id", "embedding", "angle_label", "quality", "created_at",
	}).AddRow(uuid.New(), employeeID, pgvector.NewVector([]float32{1, 0, 0, 0}), "front", 0.95, now)

	mock.ExpectQuery(`SELECT id, employee_id, embedding, angle_label, quality, created_at`).
		WillReturnRows(rows)

	repo := NewTemplateRepository(mock, 4)
	templates, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, employeeID, templates[0].EmployeeID)
	assert.Equal(t, []float64{1, 0, 0, 0}, templates[0].Embedding)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// AttendanceRepository Tests

func TestAttendanceRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	log := &domain.AttendanceLog{
		ID:             uuid.New(),
		EmployeeID:     uuid.New(),
		Direction:      domain.DirectionIn,
		Timestamp:      time.Now(),
		Confidence:     0.97,
		LivenessPassed: true,
		EvidenceKey:    "abc/2025.jpg",
	}

	rows := pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now())
	mock.ExpectQuery(`INSERT INTO attendance_logs`).
		WithArgs(log.ID, log.EmployeeID, log.Direction, log.Timestamp, log.Confidence, log.LivenessPassed, log.EvidenceKey).
		WillReturnRows(rows)

	repo := NewAttendanceRepository(mock)
	require.NoError(t, repo.Append(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_MostRecentToday(t *testing.T) {
	employeeID := uuid.New()
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	t.Run("open punch-in found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{
			"id", "employee_id", "direction", "timestamp", "confidence", "liveness_passed", "evidence_key", "created_at",
		}).AddRow(uuid.New(), employeeID, domain.DirectionIn, now.Add(-2*time.Hour), 0.97, true, "", now)

		mock.ExpectQuery(`SELECT id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at`).
			WithArgs(employeeID, start, end).
			WillReturnRows(rows)

		repo := NewAttendanceRepository(mock)
		log, err := repo.MostRecentToday(context.Background(), employeeID, now)
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.Equal(t, domain.DirectionIn, log.Direction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no log today returns nil", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at`).
			WithArgs(employeeID, start, end).
			WillReturnError(pgx.ErrNoRows)

		repo := NewAttendanceRepository(mock)
		log, err := repo.MostRecentToday(context.Background(), employeeID, now)
		require.NoError(t, err)
		assert.Nil(t, log)
	})
}

func TestAttendanceRepository_History(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	employeeID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "employee_id", "direction", "timestamp", "confidence", "liveness_passed", "evidence_key", "created_at",
	}).
		AddRow(uuid.New(), employeeID, domain.DirectionOut, now, 0.96, true, "", now).
		AddRow(uuid.New(), employeeID, domain.DirectionIn, now.Add(-8*time.Hour), 0.98, true, "", now)

	mock.ExpectQuery(`SELECT id, employee_id, direction, timestamp, confidence, liveness_passed, evidence_key, created_at`).
		WithArgs(employeeID, 100).
		WillReturnRows(rows)

	repo := NewAttendanceRepository(mock)
	logs, err := repo.History(context.Background(), domain.HistoryFilter{EmployeeID: &employeeID})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.DirectionOut, logs[0].Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_TodayStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"count", "count", "count", "count"}).AddRow(10, 7, 4, 3)
	mock.ExpectQuery(`WITH last_logs AS`).
		WithArgs(start, start.Add(24*time.Hour)).
		WillReturnRows(rows)

	repo := NewAttendanceRepository(mock)
	stats, err := repo.TodayStats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalEmployees)
	assert.Equal(t, 7, stats.PresentToday)
	assert.Equal(t, 4, stats.PunchedIn)
	assert.Equal(t, 3, stats.PunchedOut)
	assert.NoError(t, mock.ExpectationsWereMet())
}
