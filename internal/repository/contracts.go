package repository

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SessionRepository persists sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	Update(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// GetWithMovie loads a session together with its owning movie.
	GetWithMovie(ctx context.Context, id string) (*model.Session, error)
	// FindBySlot returns the session occupying the given triple, ignoring
	// the session with id excludeID when it is not empty.  It returns
	// ErrNotFound when the slot is free.
	FindBySlot(ctx context.Context, date time.Time, slot model.TimeSlot, room int, excludeID string) (*model.Session, error)
	// DeleteByMovie removes every session of a movie and reports how many
	// rows were deleted.
	DeleteByMovie(ctx context.Context, movieID string) (int64, error)
}

// TicketRepository persists tickets.
type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	// GetWithRelations loads a ticket with its user, session and the
	// session's movie.
	GetWithRelations(ctx context.Context, id string) (*model.Ticket, error)
	// MarkUsed flips used from false to true.  It returns ErrNoChange when
	// the ticket is already used.
	MarkUsed(ctx context.Context, id string) error
}

// MovieRepository persists movies.
type MovieRepository interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	GetByName(ctx context.Context, name string) (*model.Movie, error)
	// Update writes name and age restriction.  A name held by another
	// movie yields ErrDuplicate.
	Update(ctx context.Context, m *model.Movie) error
	UpdateStatus(ctx context.Context, id string, status model.MovieStatus) error
}

// WatchHistoryRepository appends and lists watch history records.
type WatchHistoryRepository interface {
	Create(ctx context.Context, h *model.WatchHistory) error
	// ListByUser returns a user's records with their movies, most recent
	// first.
	ListByUser(ctx context.Context, userID string) ([]model.WatchHistory, error)
}

// UserRepository reads users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// UnitOfWork exposes repositories bound to a single transaction.  Every
// write made through it commits or rolls back together.
type UnitOfWork interface {
	Sessions() SessionRepository
	Tickets() TicketRepository
	Movies() MovieRepository
	WatchHistory() WatchHistoryRepository
}

// Transactor opens units of work.  WithinTx commits when fn returns nil
// and rolls back otherwise; the error from fn is returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
