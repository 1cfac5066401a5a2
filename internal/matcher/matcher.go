package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
)

// ambiguityEpsilon bounds how close two different identities may score before
// the match is refused as ambiguous. Within this band the matcher cannot
// distinguish the candidates, so it reports no match at all.
const ambiguityEpsilon = 1e-9

// Options configures a Matcher.
type Options struct {
	// DistanceThreshold is exclusive: a candidate at exactly this distance
	// does not match.
	DistanceThreshold float64
	// UseHNSW switches the snapshot index from linear scan to a small-world
	// graph. Only worth it for enrollment sets in the tens of thousands.
	UseHNSW bool
}

// Matcher answers identity queries against an in-memory snapshot of the
// enrolled templates. The snapshot is replaced wholesale by Reload; queries
// between reloads see a consistent view.
type Matcher struct {
	store  TemplateStore
	opts   Options
	logger *slog.Logger

	mu         sync.RWMutex
	index      Index
	byEmployee map[uuid.UUID][]domain.Template
	dim        int
}

// New creates a Matcher. Call Reload before the first query.
func New(store TemplateStore, opts Options, logger *slog.Logger) *Matcher {
	return &Matcher{
		store:      store,
		opts:       opts,
		logger:     logger,
		index:      newBruteForce(nil),
		byEmployee: make(map[uuid.UUID][]domain.Template),
	}
}

// Reload rebuilds the snapshot from the template store. Concurrent queries
// keep using the old snapshot until the swap.
func (m *Matcher) Reload(ctx context.Context) error {
	templates, err := m.store.All(ctx)
	if err != nil {
		return err
	}

	byEmployee := make(map[uuid.UUID][]domain.Template)
	dim := 0
	for _, t := range templates {
		byEmployee[t.EmployeeID] = append(byEmployee[t.EmployeeID], t)
		dim = len(t.Embedding)
	}

	var index Index
	if m.opts.UseHNSW {
		index = newHNSW(templates)
	} else {
		index = newBruteForce(templates)
	}

	m.mu.Lock()
	m.index = index
	m.byEmployee = byEmployee
	m.dim = dim
	m.mu.Unlock()

	m.logger.Info("matcher snapshot reloaded",
		slog.Int("templates", len(templates)),
		slog.Int("employees", len(byEmployee)),
	)
	return nil
}

// Enroll replaces the employee's template set and refreshes the snapshot.
func (m *Matcher) Enroll(ctx context.Context, employeeID uuid.UUID, templates []domain.Template) error {
	if err := m.store.Add(ctx, employeeID, templates); err != nil {
		return err
	}
	return m.Reload(ctx)
}

// Forget removes the employee's templates and refreshes the snapshot.
func (m *Matcher) Forget(ctx context.Context, employeeID uuid.UUID) error {
	if err := m.store.RemoveAll(ctx, employeeID); err != nil {
		return err
	}
	return m.Reload(ctx)
}

// Match finds the enrolled identity nearest to the embedding. It returns an
// unmatched result (nil EmployeeID) when the best candidate is at or beyond
// the distance threshold, or when two different identities are too close to
// tell apart. ErrNoEnrollment is returned when nothing is enrolled at all.
func (m *Matcher) Match(embedding []float64) (*domain.MatchResult, error) {
	m.mu.RLock()
	index := m.index
	dim := m.dim
	m.mu.RUnlock()

	if index.Len() == 0 {
		return nil, domain.ErrNoEnrollment
	}
	if len(embedding) != dim {
		return nil, dimensionMismatch(len(embedding), dim)
	}

	// Two candidates are enough to detect an inter-identity tie at the top,
	// but the runner-up may belong to the same person, so take a few more.
	candidates := index.Nearest(embedding, 8)
	if len(candidates) == 0 {
		return nil, domain.ErrNoEnrollment
	}

	best := candidates[0]
	result := &domain.MatchResult{
		Distance:   best.Distance,
		Similarity: similarity(best.Distance),
	}

	if best.Distance >= m.opts.DistanceThreshold {
		return result, nil
	}

	for _, c := range candidates[1:] {
		if c.EmployeeID == best.EmployeeID {
			continue
		}
		if math.Abs(c.Distance-best.Distance) <= ambiguityEpsilon {
			m.logger.Warn("ambiguous match refused",
				slog.String("candidate_a", best.EmployeeID.String()),
				slog.String("candidate_b", c.EmployeeID.String()),
				slog.Float64("distance", best.Distance),
			)
			return result, nil
		}
		break
	}

	employeeID := best.EmployeeID
	templateID := best.TemplateID
	result.EmployeeID = &employeeID
	result.TemplateID = &templateID
	return result, nil
}

// MatchEmployee verifies the embedding against one employee's templates only,
// for callers that assert an identity up front. ErrNoEnrollment is returned
// when the employee has no templates.
func (m *Matcher) MatchEmployee(embedding []float64, employeeID uuid.UUID) (*domain.MatchResult, error) {
	m.mu.RLock()
	templates := m.byEmployee[employeeID]
	m.mu.RUnlock()

	if len(templates) == 0 {
		return nil, domain.ErrNoEnrollment
	}
	if len(embedding) != len(templates[0].Embedding) {
		return nil, dimensionMismatch(len(embedding), len(templates[0].Embedding))
	}

	best := templates[0]
	bestDist := euclidean(embedding, best.Embedding)
	for _, t := range templates[1:] {
		if d := euclidean(embedding, t.Embedding); d < bestDist {
			best, bestDist = t, d
		}
	}

	result := &domain.MatchResult{
		Distance:   bestDist,
		Similarity: similarity(bestDist),
	}
	if bestDist < m.opts.DistanceThreshold {
		id := best.EmployeeID
		tid := best.ID
		result.EmployeeID = &id
		result.TemplateID = &tid
	}
	return result, nil
}

// Confidence scores how well a burst fits one identity: the mean over frames
// of the best-template similarity for that employee. It is a separate knob
// from the distance threshold, so a matched identity can still be turned away
// as low confidence.
func (m *Matcher) Confidence(employeeID uuid.UUID, embeddings [][]float64) (float64, error) {
	m.mu.RLock()
	templates := m.byEmployee[employeeID]
	m.mu.RUnlock()

	if len(templates) == 0 {
		return 0, domain.ErrNoEnrollment
	}
	if len(embeddings) == 0 {
		return 0, nil
	}

	var sum float64
	for _, emb := range embeddings {
		if len(emb) != len(templates[0].Embedding) {
			return 0, dimensionMismatch(len(emb), len(templates[0].Embedding))
		}
		bestDist := euclidean(emb, templates[0].Embedding)
		for _, t := range templates[1:] {
			if d := euclidean(emb, t.Embedding); d < bestDist {
				bestDist = d
			}
		}
		sum += similarity(bestDist)
	}
	return sum / float64(len(embeddings)), nil
}

// Enrolled reports whether the employee has at least one template in the
// current snapshot.
func (m *Matcher) Enrolled(employeeID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byEmployee[employeeID]) > 0
}

// dimensionMismatch rejects a query whose embedding cannot be compared with
// the enrolled templates, typically after the extractor backend was switched
// without re-enrolling.
func dimensionMismatch(got, want int) error {
	return domain.ErrInvalidTemplate.WithError(
		fmt.Errorf("query embedding has %d dimensions, enrolled templates have %d", got, want))
}

// similarity maps a distance to the [0,1] confidence surfaced to callers.
func similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
