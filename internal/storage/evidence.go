// Package storage persists punch evidence snapshots.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvidenceStore keeps the frame that backed an accepted punch. Losing a
// snapshot must never lose the punch, so callers treat Put failures as
// non-fatal.
type EvidenceStore interface {
	// Put stores the frame and returns the object key.
	Put(ctx context.Context, employeeID uuid.UUID, ts time.Time, frame []byte) (string, error)
}

// Disabled is the no-op store used when no object storage is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, uuid.UUID, time.Time, []byte) (string, error) {
	return "", nil
}

// evidenceKey builds the object name: one prefix per employee, ordered by
// timestamp within it.
func evidenceKey(employeeID uuid.UUID, ts time.Time) string {
	return fmt.Sprintf("%s/%s.jpg", employeeID, ts.UTC().Format("2006-01-02T15-04-05.000"))
}
