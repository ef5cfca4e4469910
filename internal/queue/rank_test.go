package queue

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wisslab/wissrank/pkg/ai"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/snapshot"
	"github.com/wisslab/wissrank/pkg/store"
)

type fakeRunStorage struct {
	store.RankStorage

	run        store.Run
	snap       *snapshot.Snapshot
	warnings   []snapshot.Warning
	claimed    bool
	claimTaken bool

	savedResult *rank.Result
	failedWith  string
	embeddings  map[string][]float32
}

func (f *fakeRunStorage) GetRun(ctx context.Context, runID string) (store.Run, error) {
	if runID != f.run.ID {
		return store.Run{}, store.ErrNotFound
	}
	return f.run, nil
}

func (f *fakeRunStorage) MarkRunRunning(ctx context.Context, runID string) (bool, error) {
	if f.claimTaken {
		return false, nil
	}
	f.claimTaken = true
	f.claimed = true
	return true, nil
}

func (f *fakeRunStorage) MarkRunFailed(ctx context.Context, runID, message string) error {
	f.failedWith = message
	return nil
}

func (f *fakeRunStorage) LoadSnapshot(ctx context.Context, snapshotID string) (*snapshot.Snapshot, []snapshot.Warning, error) {
	if f.snap == nil {
		return nil, nil, store.ErrNotFound
	}
	return f.snap, f.warnings, nil
}

func (f *fakeRunStorage) SaveResult(ctx context.Context, runID string, result *rank.Result) error {
	f.savedResult = result
	return nil
}

func (f *fakeRunStorage) GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for _, h := range hashes {
		if v, ok := f.embeddings[h]; ok {
			out[h] = v
		}
	}
	return out, nil
}

func (f *fakeRunStorage) SaveEmbeddings(ctx context.Context, model string, hashes []string, vectors [][]float32) error {
	if f.embeddings == nil {
		f.embeddings = make(map[string][]float32)
	}
	for i, h := range hashes {
		f.embeddings[h] = vectors[i]
	}
	return nil
}

// constEmbedder maps any text to a fixed-direction unit vector with a small
// per-text perturbation from the first byte, enough for distinct scores.
type constEmbedder struct{ dim int }

func (c *constEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vec := make([]float32, c.dim)
	vec[0] = 1
	if len(input) > 0 {
		vec[1] = float32(input[0]) / 256
	}
	return vec, nil
}

func (c *constEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		vec, err := c.GenerateEmbedding(ctx, in)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *constEmbedder) Dimensions() int             { return c.dim }
func (c *constEmbedder) ResetMetrics()               {}
func (c *constEmbedder) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func rankTestRun(t *testing.T) (store.Run, *snapshot.Snapshot) {
	t.Helper()

	cfg := rank.DefaultConfig()
	cfg.ConceptText = "natural philosophy"
	cfg.EmbedDim = 4

	birth := time.Date(1820, 5, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(1880, 3, 2, 0, 0, 0, 0, time.UTC)
	snap, warnings := snapshot.Build(
		[]snapshot.Person{
			{ID: "Q1", Name: "Ada Prolific", Birth: &birth, Death: &death},
			{ID: "Q2", Name: "Blank Unknown"},
		},
		[]snapshot.Work{
			{
				ID:    "W1",
				Title: "On Natural Philosophy",
				Attributions: []snapshot.Attribution{
					{PersonID: "Q1", Relation: snapshot.AttributionAuthor},
				},
			},
		},
	)
	if len(warnings) > 0 {
		t.Fatalf("unexpected snapshot warnings: %v", warnings)
	}

	return store.Run{
		ID:         "run-1",
		SnapshotID: "snap-1",
		Status:     store.RunStatusPending,
		Config:     cfg,
	}, snap
}

func TestProcessRankMessageCompletesRun(t *testing.T) {
	run, snap := rankTestRun(t)
	storage := &fakeRunStorage{run: run, snap: snap}

	msg, _ := json.Marshal(QueueRankMsg{Message: "rank", RunID: "run-1"})
	err := ProcessRankMessage(context.Background(), &constEmbedder{dim: 4}, "test-model", storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessRankMessage() error: %v", err)
	}

	if !storage.claimed {
		t.Fatal("run was never claimed")
	}
	if storage.savedResult == nil {
		t.Fatal("no result was saved")
	}
	if got := len(storage.savedResult.Entries); got != 2 {
		t.Fatalf("ranked %d persons, want 2", got)
	}
	if storage.failedWith != "" {
		t.Fatalf("run marked failed: %s", storage.failedWith)
	}
}

func TestProcessRankMessageAggregatesSnapshotWarnings(t *testing.T) {
	run, snap := rankTestRun(t)
	storage := &fakeRunStorage{
		run:  run,
		snap: snap,
		warnings: []snapshot.Warning{
			{Code: snapshot.WarnDanglingAttribution, Message: "work W9 references unknown person Q9, edge dropped"},
		},
	}

	msg, _ := json.Marshal(QueueRankMsg{RunID: "run-1"})
	err := ProcessRankMessage(context.Background(), &constEmbedder{dim: 4}, "test-model", storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessRankMessage() error: %v", err)
	}
	if storage.savedResult == nil {
		t.Fatal("no result was saved")
	}

	var found bool
	for _, w := range storage.savedResult.Diagnostics.Warnings {
		if strings.Contains(w, snapshot.WarnDanglingAttribution) && strings.Contains(w, "Q9") {
			found = true
		}
	}
	if !found {
		t.Fatalf("saved diagnostics %v do not carry the quarantine warning", storage.savedResult.Diagnostics.Warnings)
	}
}

func TestProcessRankMessageSkipsClaimedRun(t *testing.T) {
	run, snap := rankTestRun(t)
	storage := &fakeRunStorage{run: run, snap: snap, claimTaken: true}

	msg, _ := json.Marshal(QueueRankMsg{RunID: "run-1"})
	err := ProcessRankMessage(context.Background(), &constEmbedder{dim: 4}, "test-model", storage, string(msg))
	if err != nil {
		t.Fatalf("ProcessRankMessage() error: %v", err)
	}
	if storage.savedResult != nil {
		t.Fatal("claimed run was re-executed")
	}
}

func TestProcessRankMessageMarksFailureOnBadSnapshot(t *testing.T) {
	run, _ := rankTestRun(t)
	storage := &fakeRunStorage{run: run, snap: nil}

	msg, _ := json.Marshal(QueueRankMsg{RunID: "run-1"})
	err := ProcessRankMessage(context.Background(), &constEmbedder{dim: 4}, "test-model", storage, string(msg))
	if err == nil {
		t.Fatal("ProcessRankMessage() succeeded with a missing snapshot")
	}
	if storage.failedWith == "" {
		t.Fatal("run was not marked failed")
	}
	if !strings.Contains(storage.failedWith, "not found") {
		t.Fatalf("failure message = %q, want a not-found cause", storage.failedWith)
	}
}

func TestProcessRankMessageRejectsMissingRunID(t *testing.T) {
	storage := &fakeRunStorage{}
	err := ProcessRankMessage(context.Background(), &constEmbedder{dim: 4}, "test-model", storage, `{"message":"rank"}`)
	if err == nil {
		t.Fatal("ProcessRankMessage() accepted a message without run_id")
	}
}
