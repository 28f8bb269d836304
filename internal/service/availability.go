// Package service holds the ticketing business logic.  Every multi-step
// operation opens one unit of work, evaluates its eligibility rules before
// any write and returns apperr values that the HTTP layer maps to
// responses.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// AvailabilityGuard enforces that a (date, time slot, room) triple is held
// by at most one session.  It must be called with the session repository
// of the unit of work that performs the subsequent insert or update.
type AvailabilityGuard struct{}

// CheckAvailability returns ErrSessionConflict when another session already
// occupies the triple.  excludeID names the session being updated so it
// does not conflict with itself; pass "" on create.
func (AvailabilityGuard) CheckAvailability(ctx context.Context, sessions repository.SessionRepository,
	date time.Time, slot model.TimeSlot, room int, excludeID string) error {
	if !slot.Valid() {
		return apperr.Invalid("time_slot must be one of the predefined slots")
	}
	if room <= 0 {
		return apperr.Invalid("room_number must be a positive integer")
	}
	_, err := sessions.FindBySlot(ctx, model.SessionDate(date), slot, room, excludeID)
	switch {
	case err == nil:
		return apperr.ErrSessionConflict
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}
