package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SessionRepo manages persistence for sessions.  A session is a scheduled
// screening of a movie in a room; the unique key on (date, time_slot,
// room_number) prevents double booking.
type SessionRepo struct {
	db DBTX
}

// NewSessionRepo constructs a SessionRepo on a *sql.DB or *sql.Tx.
func NewSessionRepo(db DBTX) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `s.id, s.movie_id, s.date, s.time_slot, s.room_number, s.created_at, s.updated_at`

func scanSession(row interface{ Scan(...any) error }, s *model.Session, extra ...any) error {
	dest := append([]any{&s.ID, &s.MovieID, &s.Date, &s.TimeSlot, &s.RoomNumber, &s.CreatedAt, &s.UpdatedAt}, extra...)
	return row.Scan(dest...)
}

// Create inserts a new session and reloads it to populate the DB-default
// timestamps.  A clash on the slot triple yields ErrDuplicate.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (id, movie_id, date, time_slot, room_number) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, s.ID, s.MovieID, s.Date, s.TimeSlot, s.RoomNumber); err != nil {
		return fmt.Errorf("insert session: %w", translate(err))
	}
	const sel = `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = ?`
	if err := scanSession(r.db.QueryRowContext(ctx, sel, s.ID), s); err != nil {
		return fmt.Errorf("reload session: %w", translate(err))
	}
	return nil
}

// Update writes the schedulable fields of s.  A clash on the slot triple
// yields ErrDuplicate; an unknown id yields ErrNotFound.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	const q = `UPDATE sessions SET date = ?, time_slot = ?, room_number = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, s.Date, s.TimeSlot, s.RoomNumber, s.ID); err != nil {
		return fmt.Errorf("update session: %w", translate(err))
	}
	// RowsAffected is 0 when nothing changed, so existence is checked by
	// reading the row back.
	const sel = `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = ?`
	if err := scanSession(r.db.QueryRowContext(ctx, sel, s.ID), s); err != nil {
		return fmt.Errorf("reload session: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = ?`
	var s model.Session
	if err := scanSession(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, translate(err))
	}
	return &s, nil
}

// GetWithMovie retrieves a session joined with its movie.
func (r *SessionRepo) GetWithMovie(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + `, ` + movieColumns + `
               FROM sessions s
               JOIN movies m ON m.id = s.movie_id
               WHERE s.id = ?`
	var s model.Session
	var m model.Movie
	if err := scanSession(r.db.QueryRowContext(ctx, q, id), &s, movieDest(&m)...); err != nil {
		return nil, fmt.Errorf("get session %s with movie: %w", id, translate(err))
	}
	s.Movie = &m
	return &s, nil
}

// FindBySlot returns the session holding the (date, slot, room) triple.
// Passing an empty excludeID matches every session.
func (r *SessionRepo) FindBySlot(ctx context.Context, date time.Time, slot model.TimeSlot, room int, excludeID string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + `
               FROM sessions s
               WHERE s.date = ? AND s.time_slot = ? AND s.room_number = ? AND s.id <> ?
               LIMIT 1`
	var s model.Session
	if err := scanSession(r.db.QueryRowContext(ctx, q, date, slot, room, excludeID), &s); err != nil {
		return nil, fmt.Errorf("find session by slot: %w", translate(err))
	}
	return &s, nil
}

// DeleteByMovie deletes all sessions of a movie.  Tickets for those
// sessions are removed by the ON DELETE CASCADE foreign key.
func (r *SessionRepo) DeleteByMovie(ctx context.Context, movieID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE movie_id = ?`, movieID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions of movie %s: %w", movieID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

var _ SessionRepository = (*SessionRepo)(nil)

// compile-time check that *sql.Tx satisfies DBTX
var _ DBTX = (*sql.Tx)(nil)
