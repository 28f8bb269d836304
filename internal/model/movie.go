package model

import "time"

// MovieStatus is the lifecycle state of a movie. Movies are never removed
// from the database; deleting a movie flips it to MovieInactive.
type MovieStatus string

const (
	MovieActive   MovieStatus = "ACTIVE"
	MovieInactive MovieStatus = "INACTIVE"
)

// Movie represents a row in the `movies` table.
//
// Fields:
//  ID             – UUID primary key.
//  Name           – unique movie name.
//  AgeRestriction – viewers must be strictly older than this value.
//  Status         – ACTIVE or INACTIVE (soft delete).
//  Sessions       – scheduled sessions, populated only when loaded eagerly.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Movie struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	AgeRestriction int         `json:"age_restriction"`
	Status         MovieStatus `json:"status"`
	Sessions       []Session   `json:"sessions,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsActive reports whether tickets may be sold for the movie.
func (m *Movie) IsActive() bool { return m.Status == MovieActive }
