package matcher

import (
	"math"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/tupi-labs/ponto/internal/domain"
)

// candidate is one index hit, ordered by ascending distance.
type candidate struct {
	TemplateID uuid.UUID
	EmployeeID uuid.UUID
	Distance   float64
}

// Index answers nearest-template queries over an immutable snapshot.
// Implementations are built once per Reload and never mutated afterwards,
// so lookups need no locking.
type Index interface {
	// Nearest returns up to k candidates closest to the query embedding.
	Nearest(query []float64, k int) []candidate
	// Len reports how many templates the index holds.
	Len() int
}

// euclidean returns the L2 distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// bruteForce scans every template. With enrollment sets in the hundreds this
// is faster than any index and has no recall loss, so it is the default.
type bruteForce struct {
	entries []indexEntry
}

type indexEntry struct {
	templateID uuid.UUID
	employeeID uuid.UUID
	embedding  []float64
}

func newBruteForce(templates []domain.Template) *bruteForce {
	entries := make([]indexEntry, 0, len(templates))
	for _, t := range templates {
		entries = append(entries, indexEntry{
			templateID: t.ID,
			employeeID: t.EmployeeID,
			embedding:  t.Embedding,
		})
	}
	return &bruteForce{entries: entries}
}

func (b *bruteForce) Len() int {
	return len(b.entries)
}

func (b *bruteForce) Nearest(query []float64, k int) []candidate {
	if k <= 0 || len(b.entries) == 0 {
		return nil
	}

	out := make([]candidate, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, candidate{
			TemplateID: e.templateID,
			EmployeeID: e.employeeID,
			Distance:   euclidean(query, e.embedding),
		})
	}
	sortCandidates(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// sortCandidates orders by distance, breaking exact ties by template ID so
// results are deterministic across runs.
func sortCandidates(cs []candidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && less(cs[j], cs[j-1]); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func less(a, b candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.TemplateID.String() < b.TemplateID.String()
}

// hnswIndex wraps a small-world graph for large enrollment sets. Approximate:
// recall is traded for sublinear lookups, so it is opt-in via MATCHER_INDEX.
// Graph keys must be ordered, so templates are keyed by their UUID string.
type hnswIndex struct {
	graph *hnsw.Graph[string]
	owner map[string]uuid.UUID // template ID string -> employee ID
}

func newHNSW(templates []domain.Template) *hnswIndex {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.EuclideanDistance

	owner := make(map[string]uuid.UUID, len(templates))
	for _, t := range templates {
		vec := make([]float32, len(t.Embedding))
		for i, v := range t.Embedding {
			vec[i] = float32(v)
		}
		key := t.ID.String()
		g.Add(hnsw.MakeNode(key, vec))
		owner[key] = t.EmployeeID
	}
	return &hnswIndex{graph: g, owner: owner}
}

func (h *hnswIndex) Len() int {
	return h.graph.Len()
}

func (h *hnswIndex) Nearest(query []float64, k int) []candidate {
	if k <= 0 || h.graph.Len() == 0 {
		return nil
	}

	vec := make([]float32, len(query))
	for i, v := range query {
		vec[i] = float32(v)
	}

	nodes := h.graph.Search(vec, k)
	out := make([]candidate, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, candidate{
			TemplateID: uuid.MustParse(n.Key),
			EmployeeID: h.owner[n.Key],
			Distance:   float64(hnsw.EuclideanDistance(vec, n.Value)),
		})
	}
	sortCandidates(out)
	return out
}
