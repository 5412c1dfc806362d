package db

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "planner")
	t.Setenv("DB_MAX_CONNS", "4")

	cfg := LoadConfigFromEnv()
	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "planner", cfg.Database)
	assert.Equal(t, "postgres", cfg.User)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, int32(4), cfg.MaxConns)
}

func TestConnString(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 5432, Database: "db", User: "u", Password: "p", SSLMode: "require"}
	assert.Equal(t, "host=localhost port=5432 dbname=db user=u password=p sslmode=require", cfg.ConnString())
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, stmt := range schemaStatements {
		assert.True(t, strings.Contains(stmt, "IF NOT EXISTS"), stmt)
	}
}

func TestEmbeddingIndexStatement(t *testing.T) {
	stmt := embeddingIndexStatement(768)
	assert.Contains(t, stmt, "IF NOT EXISTS idx_knowledge_unit_embedding_768")
	assert.Contains(t, stmt, "USING hnsw ((embedding::vector(768)) vector_cosine_ops)")
	assert.Contains(t, stmt, "WHERE dim = 768")
}

func TestEnsureSchemaRejectsDimension(t *testing.T) {
	for _, dim := range []int{0, -1, MaxIndexedDim + 1} {
		assert.Error(t, EnsureSchema(context.Background(), nil, dim))
	}
}
