package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"irisai/config"
	"irisai/core"
)

// PgVectorStore persists moments in Postgres with a pgvector column. The
// ingestion writer and query readers share the store concurrently, so it
// runs on a connection pool rather than a single connection.
type PgVectorStore struct {
	pool *pgxpool.Pool
	name string
	dim  int
}

func NewPgVectorStore(cfg *config.Config) (*PgVectorStore, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorStore{pool: pool, name: cfg.Collection, dim: cfg.EmbeddingDim}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS video_moments (
			id VARCHAR(64) PRIMARY KEY,
			seq BIGSERIAL,
			ts BIGINT NOT NULL,
			description TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, s.dim)
	if _, err := s.pool.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("create video_moments table: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS idx_video_moments_ts ON video_moments(ts);"); err != nil {
		log.Printf("Warning: failed to create timestamp index: %v", err)
	}

	// ivfflat needs data to pick centroids from; creation fails harmlessly
	// on an empty table and the next restart gets it.
	if _, err := s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_video_moments_embedding
		ON video_moments USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`); err != nil {
		log.Printf("Warning: failed to create vector index: %v", err)
	}
	return nil
}

func (s *PgVectorStore) Name() string { return s.name }

func (s *PgVectorStore) Upsert(ctx context.Context, m core.Moment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO video_moments (id, ts, description, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			ts = EXCLUDED.ts,
			description = EXCLUDED.description,
			embedding = EXCLUDED.embedding
	`, m.ID, m.Timestamp, m.Description, pgvector.NewVector(m.Embedding))
	if err != nil {
		return fmt.Errorf("upsert moment %s: %w", m.ID, err)
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(vector)
	rows, err := s.pool.Query(ctx, `
		SELECT ts, description, embedding <=> $1 AS distance
		FROM video_moments
		ORDER BY embedding <=> $1, seq
		LIMIT $2
	`, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search moments: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Timestamp, &h.Description, &h.Distance); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *PgVectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM video_moments").Scan(&count); err != nil {
		return 0, fmt.Errorf("count moments: %w", err)
	}
	return count, nil
}

func (s *PgVectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PgVectorStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
