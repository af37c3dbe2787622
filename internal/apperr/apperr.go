// Package apperr classifies failures the way clients are expected to react to
// them: a Kind, a message that can be shown to a user, and a technical message
// for logs.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the coarse failure category.
type Kind string

// Supported kinds.
const (
	KindNetwork      Kind = "NETWORK"
	KindNotFound     Kind = "NOT_FOUND"
	KindParse        Kind = "PARSE"
	KindDatabase     Kind = "DATABASE"
	KindUnknown      Kind = "UNKNOWN"
	KindOffline      Kind = "OFFLINE"
	KindTimeout      Kind = "TIMEOUT"
	KindServer       Kind = "SERVER"
	KindInvalidInput Kind = "INVALID_INPUT"
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// UserMessage is safe to display.
	UserMessage string
	// Technical carries diagnostic detail for logs.
	Technical string
	// Status is the upstream HTTP status for KindServer errors.
	Status int
	cause  error
}

func (e *Error) Error() string {
	if e.Technical != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Technical)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.UserMessage)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsNetwork reports connectivity-related failures.
func (e *Error) IsNetwork() bool {
	switch e.Kind {
	case KindNetwork, KindOffline, KindTimeout:
		return true
	}
	return false
}

// IsRecoverable reports failures worth retrying.
func (e *Error) IsRecoverable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer, KindUnknown:
		return true
	}
	return false
}

func newError(kind Kind, user string, cause error) *Error {
	e := &Error{Kind: kind, UserMessage: user, cause: cause}
	if cause != nil {
		e.Technical = cause.Error()
	}
	return e
}

// Network reports a failed connection.
func Network(cause error) *Error {
	return newError(KindNetwork, "No internet connection. Please check your network settings.", cause)
}

// NotFound reports a barcode unknown to the catalog.
func NotFound(barcode string) *Error {
	e := newError(KindNotFound, "Product not found. Please check the barcode and try again.", nil)
	if barcode != "" {
		e.Technical = fmt.Sprintf("product %s not found", barcode)
	}
	return e
}

// RecordNotFound reports a missing stored record, such as a scan id.
func RecordNotFound(what, id string) *Error {
	e := newError(KindNotFound, fmt.Sprintf("%s not found.", what), nil)
	e.Technical = fmt.Sprintf("%s %s not found", strings.ToLower(what), id)
	return e
}

// Parse reports an undecodable payload.
func Parse(cause error) *Error {
	return newError(KindParse, "Unable to process product data. Please try again.", cause)
}

// Database reports a persistence failure.
func Database(cause error) *Error {
	return newError(KindDatabase, "Unable to save or retrieve data. Please try again.", cause)
}

// Offline reports that the service is running without connectivity.
func Offline(msg string) *Error {
	if msg == "" {
		msg = "No internet connection. Showing cached data."
	}
	return newError(KindOffline, msg, nil)
}

// Timeout reports a request that ran out of time.
func Timeout(cause error) *Error {
	return newError(KindTimeout, "Request timed out. Please check your connection and try again.", cause)
}

// Server reports an upstream 5xx response.
func Server(status int, msg string) *Error {
	e := newError(KindServer, "Server error. Please try again later.", nil)
	e.Status = status
	e.Technical = fmt.Sprintf("upstream status %d", status)
	if msg != "" {
		e.Technical += ": " + msg
	}
	return e
}

// InvalidInput reports a rejected request argument.
func InvalidInput(msg string) *Error {
	if msg == "" {
		msg = "Invalid input. Please check your entry."
	}
	return newError(KindInvalidInput, msg, nil)
}

// Unknown wraps anything else.
func Unknown(cause error) *Error {
	return newError(KindUnknown, "An unexpected error occurred. Please try again.", cause)
}

// As extracts an *Error from err, wrapping unclassified errors as Unknown.
// It returns nil for a nil err.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown(err)
}

// KindOf returns the Kind of err, KindUnknown when unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a Kind to the status the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindParse:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork, KindServer:
		return http.StatusBadGateway
	case KindOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
