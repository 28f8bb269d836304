package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// TicketService is the ticket lifecycle used by TicketHandler.
type TicketService interface {
	Purchase(ctx context.Context, user *model.User, sessionID string) (*model.Ticket, error)
	Redeem(ctx context.Context, user *model.User, ticketID string) (*model.Ticket, error)
}

// TicketHandler serves ticket purchase and redemption for authenticated
// users.
type TicketHandler struct {
	Tickets TicketService
	Users   repository.UserRepository
}

// NewTicketHandler constructs a TicketHandler; both dependencies must be
// non-nil.
func NewTicketHandler(tickets TicketService, users repository.UserRepository) *TicketHandler {
	if tickets == nil || users == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets, Users: users}
}

// Checkout handles POST /v1/tickets/:sessionId/checkout.
func (h *TicketHandler) Checkout(c echo.Context) error {
	sessionID, err := pathID(c, "sessionId")
	if err != nil {
		return err
	}
	user, err := currentUser(c, h.Users)
	if err != nil {
		return err
	}
	ticket, err := h.Tickets.Purchase(c.Request().Context(), user, sessionID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "The Ticket Has Been Successfully Bought!", ticket)
}

// Watch handles POST /v1/tickets/:ticketId/watch.
func (h *TicketHandler) Watch(c echo.Context) error {
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}
	user, err := currentUser(c, h.Users)
	if err != nil {
		return err
	}
	ticket, err := h.Tickets.Redeem(c.Request().Context(), user, ticketID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Movie Has Been Successfully Watched!", ticket)
}

// currentUser loads the authenticated user so the services see an up to
// date age.
func currentUser(c echo.Context, users repository.UserRepository) (*model.User, error) {
	id := middleware.UserID(c)
	if id == "" {
		return nil, apperr.ErrUnauthorized
	}
	u, err := users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
