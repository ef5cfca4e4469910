package pgx

import (
	"context"
	"fmt"

	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/store"

	"github.com/pgvector/pgvector-go"
)

const embeddingChunk = 250

// GetEmbeddings returns the cached vectors for the given text hashes. Hashes
// without a cached vector are simply absent from the result map.
func (s *RankDBStorage) GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT text_hash, embedding
		FROM embeddings
		WHERE model = $1 AND text_hash = ANY($2)
	`, model, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		var vec pgvector.Vector
		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		out[hash] = vec.Slice()
	}
	return out, rows.Err()
}

// SaveEmbeddings upserts vectors into the cache. hashes and vectors are
// parallel slices.
func (s *RankDBStorage) SaveEmbeddings(ctx context.Context, model string, hashes []string, vectors [][]float32) error {
	if len(hashes) != len(vectors) {
		return fmt.Errorf("hash/vector count mismatch: %d vs %d", len(hashes), len(vectors))
	}

	return store.ChunkRange(len(hashes), embeddingChunk, func(start, end int) error {
		logger.Debug("[Store][SaveEmbeddings] Saving chunk", "model", model, "embeddings", end-start)

		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for i := start; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO embeddings (model, text_hash, embedding)
				VALUES ($1, $2, $3)
				ON CONFLICT (model, text_hash) DO UPDATE SET embedding = EXCLUDED.embedding
			`, model, hashes[i], pgvector.NewVector(vectors[i]))
			if err != nil {
				return fmt.Errorf("failed to save embedding: %w", err)
			}
		}

		return tx.Commit(ctx)
	})
}
