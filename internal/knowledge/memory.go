package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/passbi/passbi_planner/internal/models"
)

// Index stores knowledge units and retrieves them by semantic similarity
type Index interface {
	Add(ctx context.Context, units []models.KnowledgeUnit) error
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]models.KnowledgeUnit, error)
}

// MemoryIndex keeps embedded units in process memory
type MemoryIndex struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  []candidate
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder}
}

// Add embeds and appends units. Nothing is stored if any embedding fails.
func (m *MemoryIndex) Add(ctx context.Context, units []models.KnowledgeUnit) error {
	batch := make([]candidate, 0, len(units))
	for _, u := range units {
		vec, err := embedIn(ctx, m.embedder, u.Content)
		if err != nil {
			return fmt.Errorf("failed to embed unit %s: %w", u.ID, err)
		}
		batch = append(batch, candidate{unit: u, vector: vec})
	}

	m.mu.Lock()
	m.entries = append(m.entries, batch...)
	m.mu.Unlock()
	return nil
}

// Retrieve returns up to opts.K units ranked by MMR
func (m *MemoryIndex) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]models.KnowledgeUnit, error) {
	vec, err := embedIn(ctx, m.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	candidates := make([]candidate, 0, len(m.entries))
	for _, e := range m.entries {
		if matchesRoute(e.unit, opts.Route) {
			candidates = append(candidates, e)
		}
	}
	m.mu.RUnlock()

	return selectMMR(vec, candidates, opts)
}

// Len returns the number of stored units
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
