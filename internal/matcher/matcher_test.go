package matcher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupi-labs/ponto/internal/domain"
)

const testDim = 4

func testLogger() *slog.Logger {
	return slog.Default()
}

func vec(vs ...float64) []float64 {
	out := make([]float64, testDim)
	copy(out, vs)
	return out
}

func enrolledMatcher(t *testing.T, opts Options, templates ...domain.Template) *Matcher {
	t.Helper()
	store := NewMemoryStore(testDim)
	byEmployee := map[uuid.UUID][]domain.Template{}
	for _, tpl := range templates {
		byEmployee[tpl.EmployeeID] = append(byEmployee[tpl.EmployeeID], tpl)
	}
	for id, tpls := range byEmployee {
		require.NoError(t, store.Add(context.Background(), id, tpls))
	}
	m := New(store, opts, testLogger())
	require.NoError(t, m.Reload(context.Background()))
	return m
}

func template(employeeID uuid.UUID, embedding []float64) domain.Template {
	return domain.Template{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Embedding:  embedding,
	}
}

func TestMatcherMatch(t *testing.T) {
	opts := Options{DistanceThreshold: 0.45}
	alice := uuid.New()
	bob := uuid.New()

	t.Run("nearest identity wins", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(1, 0, 0, 0)),
			template(bob, vec(0, 1, 0, 0)),
		)

		res, err := m.Match(vec(0.9, 0.05, 0, 0))
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, alice, *res.EmployeeID)
		assert.InDelta(t, 1-res.Distance, res.Similarity, 1e-12)
	})

	t.Run("threshold boundary is exclusive", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(0.45, 0, 0, 0)),
		)

		res, err := m.Match(vec(0, 0, 0, 0))
		require.NoError(t, err)
		assert.False(t, res.Matched())
		assert.InDelta(t, 0.45, res.Distance, 1e-12)
	})

	t.Run("just inside threshold matches", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(0.44, 0, 0, 0)),
		)

		res, err := m.Match(vec(0, 0, 0, 0))
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, alice, *res.EmployeeID)
	})

	t.Run("equidistant identities refuse to match", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(0.1, 0, 0, 0)),
			template(bob, vec(-0.1, 0, 0, 0)),
		)

		res, err := m.Match(vec(0, 0, 0, 0))
		require.NoError(t, err)
		assert.False(t, res.Matched())
		assert.InDelta(t, 0.1, res.Distance, 1e-12)
	})

	t.Run("equidistant templates of the same identity still match", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(0.1, 0, 0, 0)),
			template(alice, vec(-0.1, 0, 0, 0)),
		)

		res, err := m.Match(vec(0, 0, 0, 0))
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, alice, *res.EmployeeID)
	})

	t.Run("deterministic across repeated queries", func(t *testing.T) {
		m := enrolledMatcher(t, opts,
			template(alice, vec(1, 0, 0, 0)),
			template(bob, vec(0, 1, 0, 0)),
		)

		first, err := m.Match(vec(0.8, 0.3, 0, 0))
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := m.Match(vec(0.8, 0.3, 0, 0))
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("empty enrollment", func(t *testing.T) {
		m := New(NewMemoryStore(testDim), opts, testLogger())
		require.NoError(t, m.Reload(context.Background()))

		_, err := m.Match(vec(1, 0, 0, 0))
		assert.ErrorIs(t, err, domain.ErrNoEnrollment)
	})

	t.Run("similarity clamps at zero", func(t *testing.T) {
		m := enrolledMatcher(t, Options{DistanceThreshold: 10},
			template(alice, vec(3, 0, 0, 0)),
		)

		res, err := m.Match(vec(0, 0, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Similarity)
	})
}

func TestMatcherMatchEmployee(t *testing.T) {
	opts := Options{DistanceThreshold: 0.45}
	alice := uuid.New()
	bob := uuid.New()

	m := enrolledMatcher(t, opts,
		template(alice, vec(1, 0, 0, 0)),
		template(bob, vec(0, 1, 0, 0)),
	)

	t.Run("matches within asserted identity", func(t *testing.T) {
		res, err := m.MatchEmployee(vec(0.9, 0, 0, 0), alice)
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, alice, *res.EmployeeID)
	})

	t.Run("other identities are never consulted", func(t *testing.T) {
		// The probe is bob's face, but the asserted identity is alice.
		res, err := m.MatchEmployee(vec(0, 1, 0, 0), alice)
		require.NoError(t, err)
		assert.False(t, res.Matched())
	})

	t.Run("unenrolled employee", func(t *testing.T) {
		_, err := m.MatchEmployee(vec(1, 0, 0, 0), uuid.New())
		assert.ErrorIs(t, err, domain.ErrNoEnrollment)
	})
}

func TestMatcherHNSWIndex(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	m := enrolledMatcher(t, Options{DistanceThreshold: 0.45, UseHNSW: true},
		template(alice, vec(1, 0, 0, 0)),
		template(bob, vec(0, 1, 0, 0)),
	)

	t.Run("nearest identity wins", func(t *testing.T) {
		res, err := m.Match(vec(0.95, 0, 0, 0))
		require.NoError(t, err)
		require.True(t, res.Matched())
		assert.Equal(t, alice, *res.EmployeeID)
	})

	t.Run("threshold still applies", func(t *testing.T) {
		res, err := m.Match(vec(0.5, 0.5, 0, 0))
		require.NoError(t, err)
		assert.False(t, res.Matched())
	})
}

func TestMatcherRejectsDimensionMismatch(t *testing.T) {
	alice := uuid.New()
	m := enrolledMatcher(t, Options{DistanceThreshold: 0.45},
		template(alice, vec(1, 0, 0, 0)),
	)
	oversized := make([]float64, testDim*2)
	oversized[0] = 1

	t.Run("global search", func(t *testing.T) {
		_, err := m.Match(oversized)
		assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	})

	t.Run("asserted identity", func(t *testing.T) {
		_, err := m.MatchEmployee(oversized, alice)
		assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	})

	t.Run("confidence", func(t *testing.T) {
		_, err := m.Confidence(alice, [][]float64{oversized})
		assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	})
}

func TestMatcherConfidence(t *testing.T) {
	alice := uuid.New()
	m := enrolledMatcher(t, Options{DistanceThreshold: 0.45},
		template(alice, vec(1, 0, 0, 0)),
		template(alice, vec(0, 1, 0, 0)),
	)

	t.Run("mean of per-frame best similarity", func(t *testing.T) {
		conf, err := m.Confidence(alice, [][]float64{
			vec(1, 0, 0, 0),   // exact: similarity 1
			vec(0.8, 0, 0, 0), // distance 0.2: similarity 0.8
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.9, conf, 1e-9)
	})

	t.Run("each frame picks its own best template", func(t *testing.T) {
		conf, err := m.Confidence(alice, [][]float64{
			vec(1, 0, 0, 0),
			vec(0, 1, 0, 0),
		})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, conf, 1e-9)
	})

	t.Run("unenrolled employee", func(t *testing.T) {
		_, err := m.Confidence(uuid.New(), [][]float64{vec(1, 0, 0, 0)})
		assert.ErrorIs(t, err, domain.ErrNoEnrollment)
	})
}

func TestMemoryStoreRejectsWrongDimension(t *testing.T) {
	store := NewMemoryStore(testDim)
	err := store.Add(context.Background(), uuid.New(), []domain.Template{
		{ID: uuid.New(), Embedding: []float64{1, 2}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
}

func TestMatcherReloadSwapsSnapshot(t *testing.T) {
	store := NewMemoryStore(testDim)
	m := New(store, Options{DistanceThreshold: 0.45}, testLogger())
	require.NoError(t, m.Reload(context.Background()))

	alice := uuid.New()
	require.NoError(t, store.Add(context.Background(), alice, []domain.Template{
		template(alice, vec(1, 0, 0, 0)),
	}))

	// Snapshot predates the enrollment.
	_, err := m.Match(vec(1, 0, 0, 0))
	assert.ErrorIs(t, err, domain.ErrNoEnrollment)

	require.NoError(t, m.Reload(context.Background()))
	res, err := m.Match(vec(1, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, res.Matched())
	assert.True(t, m.Enrolled(alice))
}
