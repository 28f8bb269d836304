package model

import "time"

// Ticket grants one user entry to one session. Used flips from false to
// true exactly once when the ticket is redeemed and never flips back.
type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Used      bool      `json:"used"`
	User      *User     `json:"user,omitempty"`
	Session   *Session  `json:"session,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchHistory is an append-only record written when a ticket is redeemed.
// Movie is populated when the history is listed for a user.
type WatchHistory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   string    `json:"movie_id"`
	Movie     *Movie    `json:"movie,omitempty"`
	WatchedAt time.Time `json:"watched_at"`
}
