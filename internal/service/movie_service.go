package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// MovieInput describes a movie to create together with the sessions to
// schedule for it.
type MovieInput struct {
	Name           string         `json:"name"`
	AgeRestriction int            `json:"age_restriction"`
	Sessions       []SessionInput `json:"sessions"`
}

// MoviePatch lists the movie fields that may change.  Nil fields are left
// untouched; Sessions are scheduled in addition to the existing ones.
type MoviePatch struct {
	Name           *string        `json:"name"`
	AgeRestriction *int           `json:"age_restriction"`
	Sessions       []SessionInput `json:"sessions"`
}

// DeletedMovie reports the outcome of a soft delete.
type DeletedMovie struct {
	ID              string            `json:"id"`
	Status          model.MovieStatus `json:"status"`
	DeletedSessions int64             `json:"deleted_sessions"`
}

// MovieService manages the movie lifecycle: creation, update and soft
// deletion, one at a time or in bulk.
type MovieService struct {
	tx    repository.Transactor
	guard AvailabilityGuard
}

func NewMovieService(tx repository.Transactor) *MovieService {
	return &MovieService{tx: tx}
}

func validateMovie(name string, ageRestriction int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("name is required")
	}
	if ageRestriction < 0 {
		return "", apperr.Invalid("age_restriction must not be negative")
	}
	return name, nil
}

// Create inserts an ACTIVE movie and schedules its sessions.  The movie
// and all of its sessions are committed together; one conflicting session
// aborts the whole creation.
func (s *MovieService) Create(ctx context.Context, in MovieInput) (*model.Movie, error) {
	name, err := validateMovie(in.Name, in.AgeRestriction)
	if err != nil {
		return nil, err
	}
	in.Name = name
	var movie *model.Movie
	err = s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		movie, err = s.create(ctx, uow, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// BulkCreate creates every movie in ins, or none of them.  Names must be
// unique within the batch.
func (s *MovieService) BulkCreate(ctx context.Context, ins []MovieInput) ([]*model.Movie, error) {
	if len(ins) == 0 {
		return nil, apperr.Invalid("movies must not be empty")
	}
	seen := make(map[string]bool, len(ins))
	for i := range ins {
		name, err := validateMovie(ins[i].Name, ins[i].AgeRestriction)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, apperr.Invalid("movie names must be unique")
		}
		seen[name] = true
		ins[i].Name = name
	}

	movies := make([]*model.Movie, 0, len(ins))
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		movies = movies[:0]
		for _, in := range ins {
			m, err := s.create(ctx, uow, in)
			if err != nil {
				return err
			}
			movies = append(movies, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movies, nil
}

// create inserts one validated movie and its sessions inside uow.
func (s *MovieService) create(ctx context.Context, uow repository.UnitOfWork, in MovieInput) (*model.Movie, error) {
	if _, err := uow.Movies().GetByName(ctx, in.Name); err == nil {
		return nil, apperr.ErrMovieAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	m := &model.Movie{
		ID:             uuid.NewString(),
		Name:           in.Name,
		AgeRestriction: in.AgeRestriction,
		Status:         model.MovieActive,
	}
	if err := uow.Movies().Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrMovieAlreadyExists.WithCause(err)
		}
		return nil, err
	}
	for _, si := range in.Sessions {
		sess, err := addSession(ctx, uow, s.guard, m.ID, si)
		if err != nil {
			return nil, err
		}
		m.Sessions = append(m.Sessions, *sess)
	}
	return m, nil
}

// Update changes an active movie and schedules the sessions listed in
// patch.  The returned movie carries the newly scheduled sessions.
func (s *MovieService) Update(ctx context.Context, movieID string, patch MoviePatch) (*model.Movie, error) {
	var movie *model.Movie
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		m, err := uow.Movies().GetByID(ctx, movieID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrMovieNotFound
			}
			return err
		}
		if !m.IsActive() {
			// deleted movies are not editable
			return apperr.ErrMovieNotFound
		}

		if patch.Name != nil {
			m.Name = *patch.Name
		}
		if patch.AgeRestriction != nil {
			m.AgeRestriction = *patch.AgeRestriction
		}
		if m.Name, err = validateMovie(m.Name, m.AgeRestriction); err != nil {
			return err
		}
		if other, err := uow.Movies().GetByName(ctx, m.Name); err == nil && other.ID != m.ID {
			return apperr.ErrMovieAlreadyExists
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := uow.Movies().Update(ctx, m); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.ErrMovieAlreadyExists.WithCause(err)
			}
			return err
		}

		for _, si := range patch.Sessions {
			sess, err := addSession(ctx, uow, s.guard, m.ID, si)
			if err != nil {
				return err
			}
			m.Sessions = append(m.Sessions, *sess)
		}
		movie = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

// SoftDelete marks a movie INACTIVE and deletes its sessions (and, through
// the foreign key, their tickets) in one unit of work.  It returns the
// number of sessions removed.
func (s *MovieService) SoftDelete(ctx context.Context, movieID string) (int64, error) {
	var removed int64
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		n, err := softDelete(ctx, uow, movieID)
		removed = n
		return err
	})
	return removed, err
}

// BulkSoftDelete soft deletes every listed movie, or none of them when one
// id is unknown.
func (s *MovieService) BulkSoftDelete(ctx context.Context, movieIDs []string) ([]DeletedMovie, error) {
	if len(movieIDs) == 0 {
		return nil, apperr.Invalid("movie_ids must not be empty")
	}
	seen := make(map[string]bool, len(movieIDs))
	for _, id := range movieIDs {
		if seen[id] {
			return nil, apperr.Invalid("movie_ids must be unique")
		}
		seen[id] = true
	}

	deleted := make([]DeletedMovie, 0, len(movieIDs))
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		deleted = deleted[:0]
		for _, id := range movieIDs {
			n, err := softDelete(ctx, uow, id)
			if err != nil {
				return err
			}
			deleted = append(deleted, DeletedMovie{ID: id, Status: model.MovieInactive, DeletedSessions: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func softDelete(ctx context.Context, uow repository.UnitOfWork, movieID string) (int64, error) {
	if err := uow.Movies().UpdateStatus(ctx, movieID, model.MovieInactive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.ErrMovieNotFound
		}
		return 0, err
	}
	return uow.Sessions().DeleteByMovie(ctx, movieID)
}
