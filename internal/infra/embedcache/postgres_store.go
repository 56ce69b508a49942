package embedcache

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS faq_embeddings (
	cache_key  TEXT PRIMARY KEY,
	embedding  vector NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore persists vectors in a pgvector column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store. Call EnsureSchema once before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the vector extension and cache table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

// GetMany implements faq.EmbeddingCache.
func (s *PostgresStore) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT cache_key, embedding
		FROM faq_embeddings
		WHERE cache_key = ANY($1)
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float32, len(keys))
	for rows.Next() {
		var (
			key string
			vec pgvector.Vector
		)
		if err := rows.Scan(&key, &vec); err != nil {
			return nil, err
		}
		out[key] = vec.Slice()
	}
	return out, rows.Err()
}

// PutMany implements faq.EmbeddingCache.
func (s *PostgresStore) PutMany(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, vec := range vectors {
		batch.Queue(`
			INSERT INTO faq_embeddings (cache_key, embedding)
			VALUES ($1, $2)
			ON CONFLICT (cache_key) DO UPDATE SET embedding = EXCLUDED.embedding
		`, key, pgvector.NewVector(vec))
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

var _ faq.EmbeddingCache = (*PostgresStore)(nil)
