package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// WatchHistoryRepo appends rows to watch_histories.
type WatchHistoryRepo struct {
	db DBTX
}

func NewWatchHistoryRepo(db DBTX) *WatchHistoryRepo { return &WatchHistoryRepo{db: db} }

func (r *WatchHistoryRepo) Create(ctx context.Context, h *model.WatchHistory) error {
	const q = `INSERT INTO watch_histories (id, user_id, movie_id, watched_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, h.ID, h.UserID, h.MovieID, h.WatchedAt); err != nil {
		return fmt.Errorf("insert watch history: %w", translate(err))
	}
	return nil
}

func (r *WatchHistoryRepo) ListByUser(ctx context.Context, userID string) ([]model.WatchHistory, error) {
	const q = `SELECT w.id, w.user_id, w.movie_id, w.watched_at, ` + movieColumns + `
               FROM watch_histories w
               JOIN movies m ON m.id = w.movie_id
               WHERE w.user_id = ?
               ORDER BY w.watched_at DESC, w.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	out := []model.WatchHistory{}
	for rows.Next() {
		var h model.WatchHistory
		var m model.Movie
		dest := append([]any{&h.ID, &h.UserID, &h.MovieID, &h.WatchedAt}, movieDest(&m)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		h.Movie = &m
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}
	return out, nil
}

var _ WatchHistoryRepository = (*WatchHistoryRepo)(nil)
