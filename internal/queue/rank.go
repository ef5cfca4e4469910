package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wisslab/wissrank/pkg/ai"
	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/store"
)

// ProcessRankMessage executes one ranking run end to end: claim the run,
// load its snapshot, score every scholar, and persist the ranking. Claiming
// is a compare-and-set on the pending status, so redelivered messages for an
// already running or finished run are dropped without side effects.
func ProcessRankMessage(
	ctx context.Context,
	embedder ai.Embedder,
	embedModel string,
	storage store.RankStorage,
	msg string,
) (err error) {
	var data QueueRankMsg
	if err = json.Unmarshal([]byte(msg), &data); err != nil {
		return err
	}
	if data.RunID == "" {
		return fmt.Errorf("rank message is missing run_id")
	}

	run, err := storage.GetRun(ctx, data.RunID)
	if err != nil {
		return err
	}

	claimed, err := storage.MarkRunRunning(ctx, run.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// run.Status predates the claim attempt and may be stale here, so the
		// log does not report it.
		logger.Info("[Queue] Skipping run: already claimed or finished", "run_id", run.ID)
		return nil
	}

	defer func() {
		if err == nil {
			return
		}
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if updateErr := storage.MarkRunFailed(updateCtx, run.ID, err.Error()); updateErr != nil {
			logger.Warn("[Queue] Failed to mark run as failed", "run_id", run.ID, "err", updateErr)
		}
	}()

	snap, warnings, err := storage.LoadSnapshot(ctx, run.SnapshotID)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		logger.Warn("[Queue] Snapshot loaded with quarantined records", "run_id", run.ID, "snapshot_id", run.SnapshotID, "warnings", len(warnings))
	}

	cached, err := store.NewCachedEmbedder(store.NewCachedEmbedderParams{
		Inner:   embedder,
		Storage: storage,
		Model:   embedModel,
	})
	if err != nil {
		return err
	}

	engine, err := rank.NewEngine(run.Config, cached)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := engine.Run(ctx, snap)
	if err != nil {
		return err
	}

	// Quarantined records are part of the run's diagnostics, not just a log
	// line: the caller decides whether they block downstream use.
	for _, w := range warnings {
		result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}

	if err = storage.SaveResult(ctx, run.ID, result); err != nil {
		return err
	}

	logger.Info("[Queue] Run completed",
		"run_id", run.ID,
		"snapshot_id", run.SnapshotID,
		"ranked", len(result.Entries),
		"excluded", len(result.Diagnostics.ExcludedPersons),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
