package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxIndexedDim is the largest vector pgvector's HNSW index accepts
const MaxIndexedDim = 2000

// schemaStatements are idempotent so EnsureSchema can run on every start
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS knowledge_unit (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		content     TEXT NOT NULL,
		origin      TEXT NOT NULL,
		destination TEXT NOT NULL,
		mode        TEXT NOT NULL,
		step_number INTEGER NOT NULL DEFAULT 0,
		estimated   BOOLEAN NOT NULL DEFAULT FALSE,
		embedder    TEXT NOT NULL,
		dim         INTEGER NOT NULL,
		embedding   vector NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (vector_dims(embedding) = dim)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_unit_route
		ON knowledge_unit (origin, destination, mode)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_unit_space
		ON knowledge_unit (embedder, dim)`,
	`CREATE INDEX IF NOT EXISTS idx_knowledge_unit_created_at
		ON knowledge_unit (created_at)`,
}

// embeddingIndexStatement builds the HNSW index for one dimension. HNSW needs a
// fixed-size column, so the index is on a cast and partial on dim.
func embeddingIndexStatement(dim int) string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_knowledge_unit_embedding_%d
		ON knowledge_unit USING hnsw ((embedding::vector(%d)) vector_cosine_ops)
		WHERE dim = %d`, dim, dim, dim)
}

// EnsureSchema creates the knowledge tables, and the vector index for dim,
// when they do not exist yet
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	if dim <= 0 || dim > MaxIndexedDim {
		return fmt.Errorf("embedding dimension %d outside 1..%d", dim, MaxIndexedDim)
	}

	statements := append(append([]string{}, schemaStatements...), embeddingIndexStatement(dim))
	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
