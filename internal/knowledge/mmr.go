package knowledge

import (
	"fmt"
	"math"
	"sort"

	"github.com/passbi/passbi_planner/internal/models"
)

const (
	DefaultK      = 5
	DefaultFetchK = 10
	DefaultLambda = 0.5
)

// RetrieveOptions controls MMR retrieval.
// Route restricts candidates to a single route's knowledge.
type RetrieveOptions struct {
	K      int
	FetchK int
	Lambda float64
	Route  *models.RouteKey
}

func (o RetrieveOptions) withDefaults() RetrieveOptions {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.FetchK <= 0 {
		o.FetchK = DefaultFetchK
	}
	if o.FetchK < o.K {
		o.FetchK = o.K
	}
	if o.Lambda <= 0 || o.Lambda > 1 {
		o.Lambda = DefaultLambda
	}
	return o
}

type candidate struct {
	unit   models.KnowledgeUnit
	vector []float64
}

// selectMMR picks the FetchK candidates most similar to query, then greedily
// selects K of them maximizing
//
//	lambda*sim(query, d) - (1-lambda)*max(sim(d, selected))
//
// Results are returned in selection order. Every candidate must have the
// query's dimension.
func selectMMR(query []float64, candidates []candidate, opts RetrieveOptions) ([]models.KnowledgeUnit, error) {
	opts = opts.withDefaults()
	for _, c := range candidates {
		if len(c.vector) != len(query) {
			return nil, fmt.Errorf("%w: unit %s has %d values, query has %d",
				ErrDimensionMismatch, c.unit.ID, len(c.vector), len(query))
		}
	}
	if len(candidates) == 0 {
		return []models.KnowledgeUnit{}, nil
	}

	type scored struct {
		candidate
		relevance float64
	}

	pool := make([]scored, len(candidates))
	for i, c := range candidates {
		pool[i] = scored{candidate: c, relevance: cosine(query, c.vector)}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].relevance > pool[j].relevance
	})
	if len(pool) > opts.FetchK {
		pool = pool[:opts.FetchK]
	}

	k := opts.K
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(pool))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for i := range pool {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = math.Inf(-1)
				for _, j := range selected {
					if s := cosine(pool[i].vector, pool[j].vector); s > redundancy {
						redundancy = s
					}
				}
			}
			score := opts.Lambda*pool[i].relevance - (1-opts.Lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		selected = append(selected, best)
	}

	out := make([]models.KnowledgeUnit, len(selected))
	for i, idx := range selected {
		out[i] = pool[idx].unit
	}
	return out, nil
}

func matchesRoute(unit models.KnowledgeUnit, route *models.RouteKey) bool {
	return route == nil || unit.Key == *route
}

// cosine expects vectors of equal length
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
