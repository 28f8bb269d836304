package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// TicketRepo manages persistence for tickets.  The unique key on
// (user_id, session_id) allows at most one ticket per user and session.
type TicketRepo struct {
	db DBTX
}

// NewTicketRepo constructs a TicketRepo on a *sql.DB or *sql.Tx.
func NewTicketRepo(db DBTX) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `t.id, t.user_id, t.session_id, t.used, t.created_at, t.updated_at`

// Create inserts a ticket and reloads it to populate the DB-default
// fields.  A second ticket for the same user and session yields
// ErrDuplicate.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, user_id, session_id, used) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.UserID, t.SessionID, t.Used); err != nil {
		return fmt.Errorf("insert ticket: %w", translate(err))
	}
	const sel = `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = ?`
	err := r.db.QueryRowContext(ctx, sel, t.ID).Scan(&t.ID, &t.UserID, &t.SessionID, &t.Used, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("reload ticket: %w", translate(err))
	}
	return nil
}

// GetWithRelations loads a ticket together with its user, its session and
// the session's movie in a single query.
func (r *TicketRepo) GetWithRelations(ctx context.Context, id string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + `,
                      u.id, u.username, u.email, u.age, u.role, u.created_at, u.updated_at,
                      ` + sessionColumns + `,
                      ` + movieColumns + `
               FROM tickets t
               JOIN users u ON u.id = t.user_id
               JOIN sessions s ON s.id = t.session_id
               JOIN movies m ON m.id = s.movie_id
               WHERE t.id = ?`
	var (
		t model.Ticket
		u model.User
		s model.Session
		m model.Movie
	)
	dest := []any{
		&t.ID, &t.UserID, &t.SessionID, &t.Used, &t.CreatedAt, &t.UpdatedAt,
		&u.ID, &u.Username, &u.Email, &u.Age, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		&s.ID, &s.MovieID, &s.Date, &s.TimeSlot, &s.RoomNumber, &s.CreatedAt, &s.UpdatedAt,
	}
	dest = append(dest, movieDest(&m)...)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(dest...); err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, translate(err))
	}
	s.Movie = &m
	t.Session = &s
	t.User = &u
	return &t, nil
}

// MarkUsed flips the used flag.  The WHERE clause keeps the transition
// one-way: an already used ticket matches no row and ErrNoChange is
// returned.
func (r *TicketRepo) MarkUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tickets SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return fmt.Errorf("mark ticket used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}

var _ TicketRepository = (*TicketRepo)(nil)
