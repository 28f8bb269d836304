package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// WatchHistoryService lists the movies a user watched.
type WatchHistoryService interface {
	ListForUser(ctx context.Context, userID string) ([]model.WatchHistory, error)
}

// UserHandler serves endpoints about the authenticated user.
type UserHandler struct {
	History WatchHistoryService
}

func NewUserHandler(history WatchHistoryService) *UserHandler {
	if history == nil {
		panic("nil service passed to NewUserHandler")
	}
	return &UserHandler{History: history}
}

// WatchHistory handles GET /v1/users/watch-history.
func (h *UserHandler) WatchHistory(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return apperr.ErrUnauthorized
	}
	history, err := h.History.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "The Users Watch History Has Been Successfully Retrieved!", history)
}
