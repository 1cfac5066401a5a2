// Package events fans committed punches out to downstream consumers
// (payroll, dashboards) over NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tupi-labs/ponto/internal/domain"
)

const (
	streamName    = "ATTENDANCE"
	subjectPrefix = "attendance.punch."
)

// Publisher announces committed punches. Publishing is best-effort: a
// failure is logged, never propagated into the punch path.
type Publisher interface {
	PunchCommitted(ctx context.Context, log *domain.AttendanceLog)
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) PunchCommitted(context.Context, *domain.AttendanceLog) {}

// NatsPublisher publishes punch events to a JetStream stream.
type NatsPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

// NewNatsPublisher connects to the broker and ensures the stream exists.
func NewNatsPublisher(url string, logger *slog.Logger) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    90 * 24 * time.Hour,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		conn.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &NatsPublisher{conn: conn, js: js, logger: logger}, nil
}

// punchEvent is the wire format consumers see.
type punchEvent struct {
	LogID          string    `json:"log_id"`
	EmployeeID     string    `json:"employee_id"`
	Direction      string    `json:"direction"`
	Timestamp      time.Time `json:"timestamp"`
	Confidence     float64   `json:"confidence"`
	LivenessPassed bool      `json:"liveness_passed"`
}

func (p *NatsPublisher) PunchCommitted(ctx context.Context, log *domain.AttendanceLog) {
	payload, err := json.Marshal(punchEvent{
		LogID:          log.ID.String(),
		EmployeeID:     log.EmployeeID.String(),
		Direction:      string(log.Direction),
		Timestamp:      log.Timestamp,
		Confidence:     log.Confidence,
		LivenessPassed: log.LivenessPassed,
	})
	if err != nil {
		p.logger.Error("marshal punch event", slog.String("error", err.Error()))
		return
	}

	subject := subjectPrefix + log.EmployeeID.String()
	if _, err := p.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
		p.logger.Error("publish punch event",
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
	}
}

// Close drains the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("drain nats connection", slog.String("error", err.Error()))
	}
}
