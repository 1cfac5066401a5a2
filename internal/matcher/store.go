package matcher

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
)

// TemplateStore is the source the matcher loads its snapshot from.
// The repository package provides the Postgres implementation; MemoryStore
// backs tests and single-node development.
type TemplateStore interface {
	// All returns every enrolled template.
	All(ctx context.Context) ([]domain.Template, error)
	// Add persists templates for an employee, replacing any existing set.
	Add(ctx context.Context, employeeID uuid.UUID, templates []domain.Template) error
	// RemoveAll deletes every template of an employee.
	RemoveAll(ctx context.Context, employeeID uuid.UUID) error
}

// MemoryStore keeps templates in memory. Templates with the wrong embedding
// dimensionality are rejected at insert, never at match time.
type MemoryStore struct {
	mu        sync.RWMutex
	dim       int
	templates map[uuid.UUID][]domain.Template
}

// NewMemoryStore creates a store accepting dim-dimensional embeddings.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{
		dim:       dim,
		templates: make(map[uuid.UUID][]domain.Template),
	}
}

func (s *MemoryStore) All(_ context.Context) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Template
	for _, ts := range s.templates {
		out = append(out, ts...)
	}
	return out, nil
}

func (s *MemoryStore) Add(_ context.Context, employeeID uuid.UUID, templates []domain.Template) error {
	for _, t := range templates {
		if len(t.Embedding) != s.dim {
			return domain.ErrInvalidTemplate
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[employeeID] = append([]domain.Template(nil), templates...)
	return nil
}

func (s *MemoryStore) RemoveAll(_ context.Context, employeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, employeeID)
	return nil
}
