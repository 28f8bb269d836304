package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// UserRepo reads the 'users' table.  Users are created and managed by the
// account service; the ticketing services only need age, email and role.
type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id,username,email,age,role,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Username, &u.Email, &u.Age, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, translate(err))
	}
	return &u, nil
}

var _ UserRepository = (*UserRepo)(nil)
