package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ad-tracker/video-moderation-go/internal/db"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so the same
// repository code runs inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories of the moderation schema and runs units of
// work against them.
type Store interface {
	Videos() VideoRepository
	Logs() ModerationLogRepository

	// InTx runs fn inside a transaction. The Store handed to fn is bound to
	// that transaction; if fn returns an error every write is rolled back.
	// Calling InTx on a transaction-bound Store opens a savepoint.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type store struct {
	conn   DBTX
	videos VideoRepository
	logs   ModerationLogRepository
}

// NewStore creates a Store on top of a pool (or an open transaction).
func NewStore(conn DBTX) Store {
	return &store{
		conn:   conn,
		videos: NewVideoRepository(conn),
		logs:   NewModerationLogRepository(conn),
	}
}

func (s *store) Videos() VideoRepository {
	return s.videos
}

func (s *store) Logs() ModerationLogRepository {
	return s.logs
}

func (s *store) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return db.WrapError(err, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(ctx, NewStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return db.WrapError(err, "commit transaction")
	}

	return nil
}
