package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the client. The string value is what goes
// out on the wire in the "type" field of an error response.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindMissingSession Kind = "missing_session"
	KindConfig         Kind = "config_error"
	KindAuth           Kind = "auth_error"
	KindRateLimited    Kind = "rate_limit"
	KindQuota          Kind = "quota_error"
	KindNetwork        Kind = "network_error"
	KindService        Kind = "service_error"
	KindParse          Kind = "parse_error"
	KindNotFound       Kind = "not_found"
)

// Error is the error type every service returns to the handler layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for New(KindValidation, message).
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// KindOf returns the kind of err. Errors that were never classified are
// reported as service errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindService
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// From converts any error into an *Error, using fallback for errors that
// were not classified yet.
func From(err error, fallback Kind, message string) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(fallback, message, err)
}

// HTTPStatus maps the kind to the status code used in error responses.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindMissingSession:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited, KindQuota:
		return http.StatusTooManyRequests
	case KindNetwork:
		return http.StatusServiceUnavailable
	case KindParse, KindService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the client should offer a manual retry.
// Only missing configuration needs an operator before anything can work.
func (k Kind) Retryable() bool {
	return k != KindConfig
}

// UserMessage is the human-readable fallback for a kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindValidation:
		return "The request is missing required information."
	case KindMissingSession:
		return "Session ID required."
	case KindConfig:
		return "Setup incomplete: the service is missing API credentials."
	case KindAuth:
		return "Invalid API key. Please check the service configuration."
	case KindRateLimited:
		return "Rate limit exceeded. Please wait a moment and try again."
	case KindQuota:
		return "API quota exceeded. Please try again later."
	case KindNetwork:
		return "Unable to connect to the generation service. Please try again."
	case KindParse:
		return "Invalid response format from the generation service."
	case KindNotFound:
		return "Not found."
	default:
		return "An unexpected error occurred. Please try again in a few moments."
	}
}
