// Package apperrors defines the error taxonomy shared by the engine's
// services: NotFound, Forbidden, LimitReached and Conflict. Every denial
// carries the rule that failed so clients can render an actionable message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrLimitReached = errors.New("limit reached")
	ErrConflict     = errors.New("conflict")
)

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s: %w", entity, ErrNotFound)
}

// Forbidden wraps ErrForbidden with the rule that denied the action.
func Forbidden(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrForbidden)
}

// LimitReached wraps ErrLimitReached with the limit that was hit.
func LimitReached(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrLimitReached)
}

// Conflict wraps ErrConflict with the state that clashed.
func Conflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}

// Code returns the wire error code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrLimitReached):
		return "LIMIT_REACHED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// Status maps err onto its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLimitReached):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
