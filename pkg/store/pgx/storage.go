package pgx

import (
	"context"

	"github.com/wisslab/wissrank/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// RankDBStorage implements store.RankStorage on PostgreSQL with pgvector for
// the embedding cache. The connection must have pgvector types registered.
type RankDBStorage struct {
	conn pgxIConn
}

var _ store.RankStorage = (*RankDBStorage)(nil)

// NewRankDBStorageWithConnection creates a RankDBStorage using an existing
// database connection or pool.
func NewRankDBStorageWithConnection(conn pgxIConn) *RankDBStorage {
	return &RankDBStorage{conn: conn}
}
