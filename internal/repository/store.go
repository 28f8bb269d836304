package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// standalone or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the MySQL Transactor.  Transactions run at SERIALIZABLE so the
// availability pre-checks read a consistent snapshot; the unique keys
// remain the final arbiter when two writers race.
type Store struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, opts: &sql.TxOptions{Isolation: sql.LevelSerializable}}
}

// DB exposes the underlying handle for read-only repositories.
func (s *Store) DB() *sql.DB { return s.db }

type sqlUnitOfWork struct{ tx *sql.Tx }

func (u sqlUnitOfWork) Sessions() SessionRepository         { return NewSessionRepo(u.tx) }
func (u sqlUnitOfWork) Tickets() TicketRepository           { return NewTicketRepo(u.tx) }
func (u sqlUnitOfWork) Movies() MovieRepository             { return NewMovieRepo(u.tx) }
func (u sqlUnitOfWork) WatchHistory() WatchHistoryRepository { return NewWatchHistoryRepo(u.tx) }

// maxTxAttempts bounds how often a transaction chosen as a deadlock victim
// is replayed.  Under SERIALIZABLE two writers racing for the same unique
// key can deadlock on gap locks; the replay then observes the winner's row.
const maxTxAttempts = 3

// WithinTx runs fn inside a transaction, replaying it when MySQL aborts it
// as a deadlock victim.
func (s *Store) WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isDeadlock(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// runTx runs fn inside one transaction.  A panic in fn rolls the
// transaction back before propagating.
func (s *Store) runTx(ctx context.Context, fn func(uow UnitOfWork) error) (err error) {
	tx, err := s.db.BeginTx(ctx, s.opts)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
	}()

	if err = fn(sqlUnitOfWork{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return translate(fmt.Errorf("could not commit transaction: %w", err))
	}
	committed = true
	return nil
}
