package knowledge

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/pgvector/pgvector-go"
)

// DB is the part of *pgxpool.Pool the index uses
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const insertUnitSQL = `
	INSERT INTO knowledge_unit
		(id, kind, content, origin, destination, mode, step_number, estimated, embedder, dim, embedding, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// PostgresIndex persists units and their embeddings in PostgreSQL with pgvector.
// Rows are tagged with the embedder's space and only that space is searched.
// The nearest FetchK rows come from the HNSW index; MMR then picks K of them.
type PostgresIndex struct {
	db       DB
	embedder Embedder
}

// NewPostgresIndex creates an index over the knowledge_unit table
func NewPostgresIndex(db DB, embedder Embedder) *PostgresIndex {
	return &PostgresIndex{db: db, embedder: embedder}
}

// Add embeds units and inserts them in a single transaction
func (p *PostgresIndex) Add(ctx context.Context, units []models.KnowledgeUnit) error {
	if len(units) == 0 {
		return nil
	}

	space := p.embedder.Space()
	vectors := make([]pgvector.Vector, len(units))
	for i, u := range units {
		vec, err := embedIn(ctx, p.embedder, u.Content)
		if err != nil {
			return fmt.Errorf("failed to embed unit %s: %w", u.ID, err)
		}
		vectors[i] = pgvector.NewVector(toFloat32(vec))
	}

	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		for i, u := range units {
			_, err := tx.Exec(ctx, insertUnitSQL,
				u.ID, string(u.Kind), u.Content, u.Key.Origin, u.Key.Destination, string(u.Key.Mode),
				u.StepNumber, u.Estimated, space.Name, space.Dim, vectors[i], u.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert knowledge unit %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

// Retrieve fetches the FetchK nearest units of the embedder's space (optionally
// for one route) and ranks them by MMR
func (p *PostgresIndex) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]models.KnowledgeUnit, error) {
	opts = opts.withDefaults()
	space := p.embedder.Space()

	vec, err := embedIn(ctx, p.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql, args := retrieveQuery(space, pgvector.NewVector(toFloat32(vec)), opts)
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge units: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var c candidate
		var embedding pgvector.Vector
		u := &c.unit
		if err := rows.Scan(&u.ID, &u.Kind, &u.Content, &u.Key.Origin, &u.Key.Destination, &u.Key.Mode,
			&u.StepNumber, &u.Estimated, &u.CreatedAt, &embedding); err != nil {
			log.Printf("Warning: failed to scan knowledge unit: %v", err)
			continue
		}
		c.vector = toFloat64(embedding.Slice())
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge units: %w", err)
	}

	return selectMMR(vec, candidates, opts)
}

// retrieveQuery builds the nearest-neighbour query. The dimension is inlined so
// the planner can match the partial per-dimension HNSW index.
func retrieveQuery(space Space, query pgvector.Vector, opts RetrieveOptions) (string, []interface{}) {
	dim := strconv.Itoa(space.Dim)
	args := []interface{}{query, space.Name}

	where := "embedder = $2 AND dim = " + dim
	if opts.Route != nil {
		where += " AND origin = $3 AND destination = $4 AND mode = $5"
		args = append(args, opts.Route.Origin, opts.Route.Destination, string(opts.Route.Mode))
	}
	args = append(args, opts.FetchK)

	sql := `
		SELECT id, kind, content, origin, destination, mode, step_number, estimated, created_at, embedding
		FROM knowledge_unit
		WHERE ` + where + `
		ORDER BY embedding::vector(` + dim + `) <=> $1
		LIMIT $` + strconv.Itoa(len(args))

	return sql, args
}

// Count returns the number of stored units across all spaces
func (p *PostgresIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, "SELECT COUNT(*) FROM knowledge_unit").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge units: %w", err)
	}
	return n, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
