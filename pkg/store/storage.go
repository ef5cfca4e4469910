package store

import (
	"context"
	"errors"
	"time"

	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/snapshot"
)

// ErrNotFound is returned when a snapshot, run, or scholar does not exist.
var ErrNotFound = errors.New("not found")

// Run states. A run moves pending → running → completed or failed; the
// transition into running happens exactly once, in the worker.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one ranking run as tracked in the database. Config carries the full
// rank.Config so a completed run is reproducible from its row alone.
type Run struct {
	ID         string      `json:"id"`
	SnapshotID string      `json:"snapshot_id"`
	Status     string      `json:"status"`
	Config     rank.Config `json:"config"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// SnapshotInfo summarizes one stored snapshot.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	PersonCount int       `json:"person_count"`
	WorkCount   int       `json:"work_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RankStorage defines the persistence interface for snapshots, cached
// embeddings, ranking runs, and their results.
type RankStorage interface {
	CreateSnapshot(ctx context.Context, snapshotID string) error
	SavePersons(ctx context.Context, snapshotID string, persons []snapshot.Person) error
	SaveWorks(ctx context.Context, snapshotID string, works []snapshot.Work) error
	LoadSnapshot(ctx context.Context, snapshotID string) (*snapshot.Snapshot, []snapshot.Warning, error)
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
	GetPerson(ctx context.Context, snapshotID, personID string) (snapshot.Person, error)

	// Crawl checkpointing: occupations already fetched into a snapshot are
	// skipped when a crawl is retried.
	IsOccupationCrawled(ctx context.Context, snapshotID, occupationID string) (bool, error)
	MarkOccupationCrawled(ctx context.Context, snapshotID, occupationID string) error

	GetEmbeddings(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	SaveEmbeddings(ctx context.Context, model string, hashes []string, vectors [][]float32) error

	CreateRun(ctx context.Context, snapshotID string, cfg rank.Config) (Run, error)
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	MarkRunRunning(ctx context.Context, runID string) (bool, error)
	MarkRunFailed(ctx context.Context, runID string, message string) error
	SaveResult(ctx context.Context, runID string, result *rank.Result) error
	GetRanking(ctx context.Context, runID string) ([]rank.RankedEntry, error)
	GetDiagnostics(ctx context.Context, runID string) (rank.Diagnostics, error)
}
