package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// SessionInput describes a session to schedule.
type SessionInput struct {
	Date       time.Time      `json:"date"`
	TimeSlot   model.TimeSlot `json:"time_slot"`
	RoomNumber int            `json:"room_number"`
}

// SessionPatch lists the fields of a session that may change.  Nil fields
// are left untouched.
type SessionPatch struct {
	Date       *time.Time      `json:"date"`
	TimeSlot   *model.TimeSlot `json:"time_slot"`
	RoomNumber *int            `json:"room_number"`
}

// SessionService schedules and reschedules sessions.
type SessionService struct {
	tx    repository.Transactor
	guard AvailabilityGuard
}

func NewSessionService(tx repository.Transactor) *SessionService {
	return &SessionService{tx: tx}
}

// Create schedules a session for an active movie.
func (s *SessionService) Create(ctx context.Context, movieID string, in SessionInput) (*model.Session, error) {
	var created *model.Session
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		movie, err := activeMovie(ctx, uow, movieID)
		if err != nil {
			return err
		}
		created, err = addSession(ctx, uow, s.guard, movie.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// activeMovie loads a movie that sessions may be scheduled for.
func activeMovie(ctx context.Context, uow repository.UnitOfWork, movieID string) (*model.Movie, error) {
	movie, err := uow.Movies().GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrMovieNotFound
		}
		return nil, err
	}
	if !movie.IsActive() {
		return nil, apperr.ErrMovieNotActive
	}
	return movie, nil
}

// addSession runs the availability guard and inserts the session inside
// uow.  It is shared with movie creation, which may schedule sessions in
// the same unit of work.
func addSession(ctx context.Context, uow repository.UnitOfWork, guard AvailabilityGuard,
	movieID string, in SessionInput) (*model.Session, error) {
	sess := &model.Session{
		ID:         uuid.NewString(),
		MovieID:    movieID,
		Date:       model.SessionDate(in.Date),
		TimeSlot:   in.TimeSlot,
		RoomNumber: in.RoomNumber,
	}
	if err := guard.CheckAvailability(ctx, uow.Sessions(), sess.Date, sess.TimeSlot, sess.RoomNumber, ""); err != nil {
		return nil, err
	}
	if err := uow.Sessions().Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrSessionConflict.WithCause(err)
		}
		return nil, err
	}
	return sess, nil
}

// Update applies patch to a session, re-validating the resulting triple
// against every other session.  Like Create, it requires the owning movie
// to be active.
func (s *SessionService) Update(ctx context.Context, sessionID string, patch SessionPatch) (*model.Session, error) {
	var updated *model.Session
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		sess, err := uow.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrSessionNotFound
			}
			return err
		}
		if _, err := activeMovie(ctx, uow, sess.MovieID); err != nil {
			return err
		}
		if patch.Date != nil {
			sess.Date = model.SessionDate(*patch.Date)
		}
		if patch.TimeSlot != nil {
			sess.TimeSlot = *patch.TimeSlot
		}
		if patch.RoomNumber != nil {
			sess.RoomNumber = *patch.RoomNumber
		}
		if err := s.guard.CheckAvailability(ctx, uow.Sessions(), sess.Date, sess.TimeSlot, sess.RoomNumber, sess.ID); err != nil {
			return err
		}
		if err := uow.Sessions().Update(ctx, sess); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.ErrSessionConflict.WithCause(err)
			}
			return err
		}
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
