// Package memory is a translation memory: accepted translations are stored
// with an embedding of their source text, and near matches of a new span are
// fed into the translation prompt as reference material.
package memory

import (
	"context"
	"fmt"

	"p3fes-translator/internal/textutil"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// Match is one similarity hit from the memory.
type Match struct {
	Source     string
	Translated string
	Score      float64
}

// Memory wraps the pgvector-backed store and the embedding client.
type Memory struct {
	pool       *pgxpool.Pool
	embeddings *EmbeddingClient
	dimensions int
}

func New(pool *pgxpool.Pool, embeddings *EmbeddingClient, dimensions int) *Memory {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &Memory{pool: pool, embeddings: embeddings, dimensions: dimensions}
}

// Migrate creates the pgvector extension and memory table when missing.
func (m *Memory) Migrate(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := m.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS translation_memory (
			hash       TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			translated TEXT NOT NULL,
			embedding  vector(%d)
		)`, m.dimensions))
	if err != nil {
		return fmt.Errorf("create translation_memory: %w", err)
	}
	return nil
}

// Store embeds and upserts accepted source→translation pairs. Embedding
// requests go out in chunks of batchSize.
func (m *Memory) Store(ctx context.Context, pairs map[string]string, batchSize int) error {
	if len(pairs) == 0 {
		return nil
	}

	sources := make([]string, 0, len(pairs))
	for src := range pairs {
		sources = append(sources, src)
	}

	vectors, err := m.embeddings.EmbedBatch(ctx, sources, batchSize)
	if err != nil {
		return fmt.Errorf("embed memory batch: %w", err)
	}

	for i, src := range sources {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		_, err := m.pool.Exec(ctx, `
			INSERT INTO translation_memory (hash, source, translated, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (hash) DO UPDATE
			SET translated = EXCLUDED.translated, embedding = EXCLUDED.embedding`,
			textutil.Hash(src), src, pairs[src], pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("store memory entry: %w", err)
		}
	}

	log.Info().Int("count", len(sources)).Msg("Stored translation memory entries")
	return nil
}

// Lookup finds the topK most similar previously translated texts.
func (m *Memory) Lookup(ctx context.Context, text string, topK int) ([]Match, error) {
	queryVec, err := m.embeddings.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	rows, err := m.pool.Query(ctx, `
		SELECT source, translated, 1 - (embedding <=> $1) AS similarity
		FROM translation_memory
		ORDER BY embedding <=> $1
		LIMIT $2`, pgvector.NewVector(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("memory lookup: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		if err := rows.Scan(&match.Source, &match.Translated, &match.Score); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		matches = append(matches, match)
	}

	return matches, rows.Err()
}
