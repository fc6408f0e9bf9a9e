package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Dispatch core error taxonomy. Every failed transition surfaces one of
// these so the caller knows which precondition failed and whether a
// retry makes sense.
var (
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrCarUnavailable    = errors.New("car unavailable")
	ErrDriverIneligible  = errors.New("driver not eligible")
	ErrDriverBusy        = errors.New("driver already has an active shift")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("lost concurrent update, retry")
)

// Validationf wraps ErrValidation with a field-level message so handlers
// can both match the class and tell the caller what to fix.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Status maps a domain error to the HTTP status code it is reported with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrCarUnavailable),
		errors.Is(err, ErrDriverIneligible),
		errors.Is(err, ErrDriverBusy):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
