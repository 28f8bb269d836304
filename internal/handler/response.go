package handler // handler contains the HTTP handlers of the ticketing API

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
)

// Response is the success envelope returned by every endpoint.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	if message == "" {
		message = "OK"
	}
	return c.JSON(status, Response{Message: message, Data: data})
}

// pathID reads a UUID path parameter.
func pathID(c echo.Context, name string) (string, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Invalid("invalid " + name)
	}
	return id.String(), nil
}

// parseDate accepts either a calendar day (2006-01-02) or an RFC 3339
// timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("date must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return t, nil
}
