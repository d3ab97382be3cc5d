package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindAuthFailure  Kind = "AUTH_FAILURE"
	KindUpstream     Kind = "UPSTREAM_FAILURE"
	KindPersistence  Kind = "PERSISTENCE_FAILURE"
	KindRateLimited  Kind = "RATE_LIMITED"
)

// Error is the application error carried across service and handler layers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, string(KindInvalidInput), message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, string(KindNotFound), message)
}

func Persistence(err error, message string) *Error {
	return Wrap(err, KindPersistence, string(KindPersistence), message)
}

// As extracts the *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Status maps err to an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case KindInvalidInput, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized, KindAuthFailure:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as the public JSON error shape {error, details?}.
// Internal causes of persistence and unclassified errors are not exposed.
func Body(err error) map[string]any {
	appErr, ok := As(err)
	if !ok {
		return map[string]any{"error": "internal server error"}
	}

	body := map[string]any{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	return body
}
