package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo manages persistence for movies.
type MovieRepo struct {
	db DBTX
}

// NewMovieRepo constructs a MovieRepo on a *sql.DB or *sql.Tx.
func NewMovieRepo(db DBTX) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `m.id, m.name, m.age_restriction, m.status, m.created_at, m.updated_at`

func movieDest(m *model.Movie) []any {
	return []any{&m.ID, &m.Name, &m.AgeRestriction, &m.Status, &m.CreatedAt, &m.UpdatedAt}
}

// Create inserts a movie.  A clash on the name yields ErrDuplicate.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (id, name, age_restriction, status) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, m.ID, m.Name, m.AgeRestriction, m.Status); err != nil {
		return fmt.Errorf("insert movie: %w", translate(err))
	}
	const sel = `SELECT ` + movieColumns + ` FROM movies m WHERE m.id = ?`
	if err := r.db.QueryRowContext(ctx, sel, m.ID).Scan(movieDest(m)...); err != nil {
		return fmt.Errorf("reload movie: %w", translate(err))
	}
	return nil
}

func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies m WHERE m.id = ?`
	var m model.Movie
	if err := r.db.QueryRowContext(ctx, q, id).Scan(movieDest(&m)...); err != nil {
		return nil, fmt.Errorf("get movie %s: %w", id, translate(err))
	}
	return &m, nil
}

func (r *MovieRepo) GetByName(ctx context.Context, name string) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies m WHERE m.name = ?`
	var m model.Movie
	if err := r.db.QueryRowContext(ctx, q, name).Scan(movieDest(&m)...); err != nil {
		return nil, fmt.Errorf("get movie by name: %w", translate(err))
	}
	return &m, nil
}

// Update writes the editable fields of m and reloads it.  A clash on the
// name yields ErrDuplicate; an unknown id yields ErrNotFound.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET name = ?, age_restriction = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, m.Name, m.AgeRestriction, m.ID); err != nil {
		return fmt.Errorf("update movie: %w", translate(err))
	}
	const sel = `SELECT ` + movieColumns + ` FROM movies m WHERE m.id = ?`
	if err := r.db.QueryRowContext(ctx, sel, m.ID).Scan(movieDest(m)...); err != nil {
		return fmt.Errorf("reload movie: %w", translate(err))
	}
	return nil
}

// UpdateStatus sets the lifecycle status of a movie.  It returns
// ErrNotFound when no movie has the given id.
func (r *MovieRepo) UpdateStatus(ctx context.Context, id string, status model.MovieStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE movies SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update movie status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Either the movie is missing or the status was already set.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

var _ MovieRepository = (*MovieRepo)(nil)
