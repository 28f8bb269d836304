package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// MovieService is the movie lifecycle used by MovieHandler.
type MovieService interface {
	Create(ctx context.Context, in service.MovieInput) (*model.Movie, error)
	Update(ctx context.Context, movieID string, patch service.MoviePatch) (*model.Movie, error)
	SoftDelete(ctx context.Context, movieID string) (int64, error)
	BulkCreate(ctx context.Context, ins []service.MovieInput) ([]*model.Movie, error)
	BulkSoftDelete(ctx context.Context, movieIDs []string) ([]service.DeletedMovie, error)
}

// MovieHandler serves manager-only movie endpoints.
type MovieHandler struct {
	Movies MovieService
}

func NewMovieHandler(movies MovieService) *MovieHandler {
	if movies == nil {
		panic("nil service passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies}
}

type createMovieRequest struct {
	Name           string                 `json:"name"`
	AgeRestriction *int                   `json:"age_restriction"`
	Sessions       []createSessionRequest `json:"sessions"`
}

func (r createMovieRequest) input() (service.MovieInput, error) {
	if r.AgeRestriction == nil {
		return service.MovieInput{}, apperr.Invalid("age_restriction is required")
	}
	sessions, err := sessionInputs(r.Sessions)
	if err != nil {
		return service.MovieInput{}, err
	}
	return service.MovieInput{Name: r.Name, AgeRestriction: *r.AgeRestriction, Sessions: sessions}, nil
}

func sessionInputs(reqs []createSessionRequest) ([]service.SessionInput, error) {
	var out []service.SessionInput
	for _, s := range reqs {
		si, err := s.input()
		if err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, nil
}

type updateMovieRequest struct {
	Name           *string                `json:"name"`
	AgeRestriction *int                   `json:"age_restriction"`
	Sessions       []createSessionRequest `json:"sessions"`
}

type bulkCreateMovieRequest struct {
	Movies []createMovieRequest `json:"movies"`
}

type bulkDeleteMovieRequest struct {
	MovieIDs []string `json:"movie_ids"`
}

// Create handles POST /v1/movies.  Sessions listed in the body are scheduled
// together with the movie.
func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	movie, err := h.Movies.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "The Movie Has Been Successfully Created!", movie)
}

// Delete handles DELETE /v1/movies/:movieId.  The movie is deactivated and
// its sessions are removed.
func (h *MovieHandler) Delete(c echo.Context) error {
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	removed, err := h.Movies.SoftDelete(c.Request().Context(), movieID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Movie Has Been Successfully Deleted!", echo.Map{
		"id":               movieID,
		"status":           model.MovieInactive,
		"deleted_sessions": removed,
	})
}

// Update handles PUT /v1/movies/:movieId.  Name and age restriction change
// when present; listed sessions are scheduled in addition to the existing
// ones.
func (h *MovieHandler) Update(c echo.Context) error {
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	var req updateMovieRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	sessions, err := sessionInputs(req.Sessions)
	if err != nil {
		return err
	}
	patch := service.MoviePatch{Name: req.Name, AgeRestriction: req.AgeRestriction, Sessions: sessions}
	movie, err := h.Movies.Update(c.Request().Context(), movieID, patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Movie Has Been Successfully Updated!", movie)
}

// BulkCreate handles POST /v1/movies/bulk/add.  Either every movie is
// created or none is.
func (h *MovieHandler) BulkCreate(c echo.Context) error {
	var req bulkCreateMovieRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	ins := make([]service.MovieInput, 0, len(req.Movies))
	for _, m := range req.Movies {
		in, err := m.input()
		if err != nil {
			return err
		}
		ins = append(ins, in)
	}
	movies, err := h.Movies.BulkCreate(c.Request().Context(), ins)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "The Movies Have Been Successfully Created!", movies)
}

// BulkDelete handles POST /v1/movies/bulk/delete.
func (h *MovieHandler) BulkDelete(c echo.Context) error {
	var req bulkDeleteMovieRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	ids := make([]string, 0, len(req.MovieIDs))
	for _, raw := range req.MovieIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return apperr.Invalid("invalid movie id " + raw)
		}
		ids = append(ids, id.String())
	}
	deleted, err := h.Movies.BulkSoftDelete(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Movies Have Been Successfully Deleted!", deleted)
}
