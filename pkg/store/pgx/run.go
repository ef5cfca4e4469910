package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const rankingChunk = 1000

// CreateRun inserts a pending run for a snapshot. The full configuration is
// stored alongside so the run is reproducible from its row.
func (s *RankDBStorage) CreateRun(ctx context.Context, snapshotID string, cfg rank.Config) (store.Run, error) {
	id, err := gonanoid.New()
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to generate run id: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to marshal run config: %w", err)
	}

	run := store.Run{
		ID:         id,
		SnapshotID: snapshotID,
		Status:     store.RunStatusPending,
		Config:     cfg,
	}
	err = s.conn.QueryRow(ctx, `
		INSERT INTO runs (id, snapshot_id, status, config)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, id, snapshotID, store.RunStatusPending, cfgJSON).Scan(&run.CreatedAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

func (s *RankDBStorage) GetRun(ctx context.Context, runID string) (store.Run, error) {
	run, err := scanRun(s.conn.QueryRow(ctx, `
		SELECT id, snapshot_id, status, config, COALESCE(error_message, ''), created_at, started_at, finished_at
		FROM runs
		WHERE id = $1
	`, runID))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *RankDBStorage) ListRuns(ctx context.Context) ([]store.Run, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, snapshot_id, status, config, COALESCE(error_message, ''), created_at, started_at, finished_at
		FROM runs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgxv5.Row) (store.Run, error) {
	var run store.Run
	var cfgJSON []byte
	err := row.Scan(&run.ID, &run.SnapshotID, &run.Status, &cfgJSON, &run.Error,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return store.Run{}, err
	}
	if err := json.Unmarshal(cfgJSON, &run.Config); err != nil {
		return store.Run{}, fmt.Errorf("failed to unmarshal run config: %w", err)
	}
	return run, nil
}

// MarkRunRunning claims a pending run. Returns false when the run was already
// claimed or finished, so competing workers process it at most once.
func (s *RankDBStorage) MarkRunRunning(ctx context.Context, runID string) (bool, error) {
	tag, err := s.conn.Exec(ctx, `
		UPDATE runs
		SET status = $2, started_at = now()
		WHERE id = $1 AND status = $3
	`, runID, store.RunStatusRunning, store.RunStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark run running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *RankDBStorage) MarkRunFailed(ctx context.Context, runID string, message string) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE runs
		SET status = $2, error_message = $3, finished_at = now()
		WHERE id = $1
	`, runID, store.RunStatusFailed, message)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// SaveResult persists the ranking and diagnostics of a completed run in one
// transaction and flips the run to completed.
func (s *RankDBStorage) SaveResult(ctx context.Context, runID string, result *rank.Result) error {
	diagJSON, err := json.Marshal(result.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	entries := result.Entries
	err = store.ChunkRange(len(entries), rankingChunk, func(start, end int) error {
		part := entries[start:end]
		logger.Debug("[Store][SaveResult] Saving ranking chunk", "run_id", runID, "entries", len(part))

		for _, e := range part {
			imputed := e.ImputedSignals
			if imputed == nil {
				imputed = []string{}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO rankings (run_id, person_public_id, rank, fused_score,
					semantic_score, graph_score, temporal_score, imputed_signals)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (run_id, person_public_id) DO UPDATE SET
					rank = EXCLUDED.rank,
					fused_score = EXCLUDED.fused_score,
					semantic_score = EXCLUDED.semantic_score,
					graph_score = EXCLUDED.graph_score,
					temporal_score = EXCLUDED.temporal_score,
					imputed_signals = EXCLUDED.imputed_signals
			`, runID, e.PersonID, e.Rank, e.FusedScore,
				e.SemanticScore, e.GraphScore, e.TemporalScore, imputed)
			if err != nil {
				return fmt.Errorf("failed to save ranking entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE runs
		SET status = $2, diagnostics = $3, finished_at = now()
		WHERE id = $1
	`, runID, store.RunStatusCompleted, diagJSON)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *RankDBStorage) GetRanking(ctx context.Context, runID string) ([]rank.RankedEntry, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT person_public_id, rank, fused_score, semantic_score, graph_score, temporal_score, imputed_signals
		FROM rankings
		WHERE run_id = $1
		ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}
	defer rows.Close()

	var entries []rank.RankedEntry
	for rows.Next() {
		var e rank.RankedEntry
		if err := rows.Scan(&e.PersonID, &e.Rank, &e.FusedScore,
			&e.SemanticScore, &e.GraphScore, &e.TemporalScore, &e.ImputedSignals); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *RankDBStorage) GetDiagnostics(ctx context.Context, runID string) (rank.Diagnostics, error) {
	var diagJSON []byte
	err := s.conn.QueryRow(ctx, `
		SELECT COALESCE(diagnostics, '{}'::jsonb)
		FROM runs
		WHERE id = $1
	`, runID).Scan(&diagJSON)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return rank.Diagnostics{}, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
	}
	if err != nil {
		return rank.Diagnostics{}, fmt.Errorf("failed to get diagnostics: %w", err)
	}

	var diag rank.Diagnostics
	if err := json.Unmarshal(diagJSON, &diag); err != nil {
		return rank.Diagnostics{}, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	return diag, nil
}
