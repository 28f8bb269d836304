package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// SessionService schedules sessions for SessionHandler.
type SessionService interface {
	Create(ctx context.Context, movieID string, in service.SessionInput) (*model.Session, error)
	Update(ctx context.Context, sessionID string, patch service.SessionPatch) (*model.Session, error)
}

// SessionHandler serves manager-only session endpoints.
type SessionHandler struct {
	Sessions SessionService
}

func NewSessionHandler(sessions SessionService) *SessionHandler {
	if sessions == nil {
		panic("nil service passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions}
}

type createSessionRequest struct {
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
	RoomNumber int    `json:"room_number"`
}

func (r createSessionRequest) input() (service.SessionInput, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return service.SessionInput{}, err
	}
	return service.SessionInput{Date: date, TimeSlot: model.TimeSlot(r.TimeSlot), RoomNumber: r.RoomNumber}, nil
}

type updateSessionRequest struct {
	Date       *string `json:"date"`
	TimeSlot   *string `json:"time_slot"`
	RoomNumber *int    `json:"room_number"`
}

// Create handles POST /v1/sessions/:movieId.
func (h *SessionHandler) Create(c echo.Context) error {
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	sess, err := h.Sessions.Create(c.Request().Context(), movieID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "The Session Has Been Successfully Created!", sess)
}

// Update handles PATCH /v1/sessions/:sessionId.  Only the fields present in
// the body change.
func (h *SessionHandler) Update(c echo.Context) error {
	sessionID, err := pathID(c, "sessionId")
	if err != nil {
		return err
	}
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Invalid("invalid request body")
	}
	var patch service.SessionPatch
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return err
		}
		patch.Date = &d
	}
	if req.TimeSlot != nil {
		slot := model.TimeSlot(*req.TimeSlot)
		patch.TimeSlot = &slot
	}
	patch.RoomNumber = req.RoomNumber

	sess, err := h.Sessions.Update(c.Request().Context(), sessionID, patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Session Has Been Successfully Updated!", sess)
}
