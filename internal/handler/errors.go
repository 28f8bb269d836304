package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/log"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code       int    `json:"code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindInternal:     http.StatusInternalServerError,
	apperr.KindBadRequest:   http.StatusBadRequest,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindTimeout:      http.StatusRequestTimeout,
}

// ErrorHandler is the echo HTTPErrorHandler.  Business errors are rendered
// with their code; echo's own errors (unknown route, bad method, malformed
// body) keep their status; anything else is an UNKNOWN_ERROR and is logged.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var (
		body   ErrorBody
		he     *echo.HTTPError
		appErr *apperr.Error
	)
	switch {
	case errors.As(err, &appErr):
		body = fromAppErr(appErr)
	case errors.Is(err, context.DeadlineExceeded):
		body = fromAppErr(apperr.ErrRequestTimeout)
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		body = ErrorBody{
			Code:       apperr.ErrUnknown.Code,
			Error:      strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")),
			Message:    msg,
			StatusCode: he.Code,
		}
	default:
		body = fromAppErr(apperr.ErrUnknown)
	}
	if body.StatusCode >= http.StatusInternalServerError {
		log.FromContext(c.Request().Context()).WithError(err).Error("request failed")
	}
	body.Path = c.Request().URL.RequestURI()
	body.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(body.StatusCode)
	} else {
		err = c.JSON(body.StatusCode, body)
	}
	if err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Warn("could not write error response")
	}
}

func fromAppErr(e *apperr.Error) ErrorBody {
	status, ok := kindStatus[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return ErrorBody{Code: e.Code, Error: e.Name, Message: e.Message, StatusCode: status}
}
