//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tupi-labs/ponto/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "ponto_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/ponto_test?sslmode=disable", host, port.Port())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
		CREATE EXTENSION IF NOT EXISTS "vector";

		CREATE TABLE IF NOT EXISTS employees (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			employee_id VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			department VARCHAR(255),
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS face_templates (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			embedding vector(128) NOT NULL,
			angle_label VARCHAR(32) NOT NULL DEFAULT '',
			quality FLOAT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS attendance_logs (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
			direction VARCHAR(3) NOT NULL CHECK (direction IN ('in', 'out')),
			timestamp TIMESTAMPTZ NOT NULL,
			confidence FLOAT NOT NULL DEFAULT 0,
			liveness_passed BOOLEAN NOT NULL DEFAULT false,
			evidence_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_attendance_employee_ts ON attendance_logs(employee_id, timestamp DESC);
	`)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func createEmployee(t *testing.T, repo *EmployeeRepository, employeeID string) *domain.Employee {
	t.Helper()
	employee := &domain.Employee{
		EmployeeID: employeeID,
		Name:       "Employee " + employeeID,
		IsActive:   true,
	}
	require.NoError(t, repo.Create(context.Background(), employee))
	return employee
}

func TestAttendanceLedger_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	employees := NewEmployeeRepository(db)
	attendance := NewAttendanceRepository(db)

	alice := createEmployee(t, employees, "E001")
	bob := createEmployee(t, employees, "E002")

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	appendLog := func(emp *domain.Employee, dir domain.Direction, at time.Time) *domain.AttendanceLog {
		log := &domain.AttendanceLog{
			EmployeeID:     emp.ID,
			Direction:      dir,
			Timestamp:      at,
			Confidence:     0.97,
			LivenessPassed: true,
		}
		require.NoError(t, attendance.Append(ctx, log))
		return log
	}

	t.Run("most recent today tracks the latest log only", func(t *testing.T) {
		appendLog(alice, domain.DirectionIn, day.Add(8*time.Hour))
		appendLog(alice, domain.DirectionOut, day.Add(17*time.Hour))

		last, err := attendance.MostRecentToday(ctx, alice.ID, day.Add(18*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, domain.DirectionOut, last.Direction)
	})

	t.Run("yesterday's logs do not leak into today", func(t *testing.T) {
		nextDay := day.Add(24 * time.Hour)
		last, err := attendance.MostRecentToday(ctx, alice.ID, nextDay.Add(8*time.Hour))
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("history is newest first and per-employee", func(t *testing.T) {
		appendLog(bob, domain.DirectionIn, day.Add(9*time.Hour))

		logs, err := attendance.History(ctx, domain.HistoryFilter{EmployeeID: &alice.ID})
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, domain.DirectionOut, logs[0].Direction)
		assert.Equal(t, domain.DirectionIn, logs[1].Direction)
	})

	t.Run("today stats from last log per employee", func(t *testing.T) {
		stats, err := attendance.TodayStats(ctx, day.Add(12*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalEmployees)
		assert.Equal(t, 2, stats.PresentToday)
		assert.Equal(t, 1, stats.PunchedIn)  // bob is still in
		assert.Equal(t, 1, stats.PunchedOut) // alice went out
	})
}

func TestTemplateRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	employees := NewEmployeeRepository(db)
	templates := NewTemplateRepository(db, 128)

	alice := createEmployee(t, employees, "E010")

	embedding := func(seed float64) []float64 {
		out := make([]float64, 128)
		out[0] = seed
		return out
	}

	t.Run("add replaces the previous set", func(t *testing.T) {
		require.NoError(t, templates.Add(ctx, alice.ID, []domain.Template{
			{EmployeeID: alice.ID, Embedding: embedding(0.1), AngleLabel: "front"},
			{EmployeeID: alice.ID, Embedding: embedding(0.2), AngleLabel: "left"},
		}))
		require.NoError(t, templates.Add(ctx, alice.ID, []domain.Template{
			{EmployeeID: alice.ID, Embedding: embedding(0.3), AngleLabel: "front"},
		}))

		all, err := templates.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.InDelta(t, 0.3, all[0].Embedding[0], 1e-6)
	})

	t.Run("remove all clears enrollment", func(t *testing.T) {
		require.NoError(t, templates.RemoveAll(ctx, alice.ID))
		all, err := templates.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
