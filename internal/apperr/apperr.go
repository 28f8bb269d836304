// Package apperr defines the business errors surfaced by the ticketing
// services. Every error carries a stable numeric code, a machine readable
// name and a human message, plus a Kind that the HTTP layer translates into
// a status code. Services return the sentinel values below (optionally
// wrapping a cause) and callers compare them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTimeout
)

// Error is a typed business error. Two Errors are considered equal by
// errors.Is when their codes match, so a wrapped copy produced by
// WithCause still matches its sentinel.
type Error struct {
	Code    int
	Name    string
	Message string
	Kind    Kind
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func newError(code int, name, message string, kind Kind) *Error {
	return &Error{Code: code, Name: name, Message: message, Kind: kind}
}

var (
	ErrUnknown                   = newError(-1, "UNKNOWN_ERROR", "Something went wrong", KindInternal)
	ErrUnauthorized              = newError(1, "UNAUTHORIZED", "Unauthorized", KindUnauthorized)
	ErrForbidden                 = newError(2, "FORBIDDEN", "Forbidden", KindForbidden)
	ErrUserNotFound              = newError(4, "USER_NOT_FOUND", "User not found", KindNotFound)
	ErrMovieNotFound             = newError(5, "MOVIE_NOT_FOUND", "Movie not found", KindNotFound)
	ErrMovieAlreadyExists        = newError(6, "MOVIE_ALREADY_EXISTS", "Movie already exists", KindConflict)
	ErrSessionNotFound           = newError(8, "SESSION_NOT_FOUND", "Session not found", KindNotFound)
	ErrSessionConflict           = newError(9, "SESSION_ALREADY_EXISTS", "This room is already booked for the given date and time slot", KindConflict)
	ErrUserNotOldEnough          = newError(10, "USER_NOT_OLD_ENOUGH", "User does not meet the age restriction for this movie", KindBadRequest)
	ErrTicketAlreadyExists       = newError(11, "TICKET_ALREADY_EXISTS", "Ticket already exists", KindConflict)
	ErrTicketNotFound            = newError(12, "TICKET_NOT_FOUND", "Ticket not found", KindNotFound)
	ErrTicketAlreadyUsed         = newError(13, "TICKET_ALREADY_USED", "Ticket has already been used", KindConflict)
	ErrMovieNotActive            = newError(16, "MOVIE_IS_NOT_ACTIVE", "Movie is not active", KindBadRequest)
	ErrTicketDoesNotBelongToUser = newError(17, "TICKET_DOES_NOT_BELONG_TO_USER", "Ticket does not belong to user", KindForbidden)
	ErrSessionAlreadyPassed      = newError(18, "SESSION_ALREADY_PASSED", "Session has already passed", KindBadRequest)
	ErrRequestTimeout            = newError(20, "REQUEST_TIMEOUT", "Request timed out", KindTimeout)
	ErrInvalidRequest            = newError(21, "INVALID_REQUEST", "Invalid request", KindBadRequest)
)

// Invalid returns an INVALID_REQUEST error with a specific message.
func Invalid(message string) *Error {
	e := *ErrInvalidRequest
	e.Message = message
	return &e
}

// From extracts the *Error from err. Errors that are not business errors
// are reported as ErrUnknown wrapping the original error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrUnknown.WithCause(err)
}
