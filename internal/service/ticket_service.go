package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/log"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// EventPublisher hands events to the message broker.  *queue.Publisher
// implements it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any, retryCount int) error
}

// TicketService sells and redeems tickets.
//
// Purchase and Redeem each run in a single unit of work.  The eligibility
// checks are evaluated in a fixed order before anything is written; the
// first failing check decides the returned error.  The purchase event is
// published only after the ticket committed, and a broker failure never
// undoes the purchase.
type TicketService struct {
	tx        repository.Transactor
	publisher EventPublisher
	now       func() time.Time
	loc       *time.Location
}

// NewTicketService returns a TicketService using the wall clock.
func NewTicketService(tx repository.Transactor, publisher EventPublisher) *TicketService {
	return &TicketService{tx: tx, publisher: publisher, now: time.Now, loc: time.UTC}
}

// WithClock replaces the clock used for the session-passed check.
func (s *TicketService) WithClock(now func() time.Time) *TicketService {
	s.now = now
	return s
}

// WithLocation sets the time zone in which session days and slots are
// interpreted.
func (s *TicketService) WithLocation(loc *time.Location) *TicketService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// Purchase issues a ticket for user to the given session.
func (s *TicketService) Purchase(ctx context.Context, user *model.User, sessionID string) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		sess, err := uow.Sessions().GetWithMovie(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrSessionNotFound
			}
			return err
		}
		if err := s.canPurchase(user, sess); err != nil {
			return err
		}
		t := &model.Ticket{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			SessionID: sess.ID,
			Used:      false,
		}
		if err := uow.Tickets().Create(ctx, t); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.ErrTicketAlreadyExists.WithCause(err)
			}
			return err
		}
		t.Session = sess
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := queue.TicketPurchasedEvent{UserID: user.ID, TicketID: ticket.ID}
	if err := s.publisher.Publish(ctx, queue.RoutingKeyBuyTicket, event, 0); err != nil {
		log.FromContext(ctx).WithError(err).
			WithField("ticket_id", ticket.ID).
			Warn("ticket purchased but confirmation event was not published")
	}
	return ticket, nil
}

func (s *TicketService) canPurchase(user *model.User, sess *model.Session) error {
	if sess.Movie == nil || !sess.Movie.IsActive() {
		return apperr.ErrMovieNotActive
	}
	if user.Age <= sess.Movie.AgeRestriction {
		return apperr.ErrUserNotOldEnough
	}
	return s.checkNotPassed(sess)
}

// Redeem consumes a ticket so that user can watch its movie.  The used flag
// and the watch history record are written together.
func (s *TicketService) Redeem(ctx context.Context, user *model.User, ticketID string) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		t, err := uow.Tickets().GetWithRelations(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrTicketNotFound
			}
			return err
		}
		if t.Used {
			return apperr.ErrTicketAlreadyUsed
		}
		if t.UserID != user.ID {
			return apperr.ErrTicketDoesNotBelongToUser
		}
		if err := s.checkNotPassed(t.Session); err != nil {
			return err
		}

		if err := uow.Tickets().MarkUsed(ctx, t.ID); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				// lost a race with a concurrent redemption
				return apperr.ErrTicketAlreadyUsed
			}
			return err
		}
		err = uow.WatchHistory().Create(ctx, &model.WatchHistory{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			MovieID:   t.Session.MovieID,
			WatchedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		t.Used = true
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket loads a ticket with its user, session and movie.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	var ticket *model.Ticket
	err := s.tx.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		t, err := uow.Tickets().GetWithRelations(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrTicketNotFound
			}
			return err
		}
		ticket = t
		return nil
	})
	return ticket, err
}

func (s *TicketService) checkNotPassed(sess *model.Session) error {
	passed, err := sess.HasPassed(s.now(), s.loc)
	if err != nil {
		return err
	}
	if passed {
		return apperr.ErrSessionAlreadyPassed
	}
	return nil
}
