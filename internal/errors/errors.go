// Package errors defines the engine's user-facing error taxonomy and the
// central mapping from internal errors to HTTP responses. Keeping the
// mapping in one place keeps the service layer clean.
package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// Kind is the stable machine-readable error class carried to callers.
type Kind string

const (
	KindInvalidSwipe       Kind = "invalid_swipe"
	KindProfileUnavailable Kind = "profile_unavailable"
	KindFeedTimeout        Kind = "feed_timeout"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindInvalidRequest     Kind = "invalid_request"
	KindInternal           Kind = "internal"
)

// Error pairs a Kind with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }
func (e *Error) Unwrap() error { return e.wrapped }

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, wrapped: err}
}

func InvalidSwipe(msg string) *Error       { return New(KindInvalidSwipe, msg) }
func ProfileUnavailable(msg string) *Error { return New(KindProfileUnavailable, msg) }
func FeedTimeout(msg string) *Error        { return New(KindFeedTimeout, msg) }
func Unauthorized(msg string) *Error       { return New(KindUnauthorized, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func InvalidRequest(msg string) *Error     { return New(KindInvalidRequest, msg) }

// KindOf extracts the Kind from any error in the chain, mapping common
// infra errors the way the service layer expects, and KindInternal for
// everything unclassified.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindFeedTimeout
	default:
		return KindInternal
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind Kind) int {
	switch kind {
	case KindInvalidSwipe, KindInvalidRequest:
		return http.StatusBadRequest
	case KindProfileUnavailable:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindFeedTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error struct {
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteHTTP renders err as the engine's error JSON envelope. Internal
// causes are not leaked; callers get the kind plus a safe message.
func WriteHTTP(w http.ResponseWriter, err error) {
	kind := KindOf(err)

	var body errorBody
	body.Error.Kind = kind

	var e *Error
	if errors.As(err, &e) {
		body.Error.Message = e.Message
	} else {
		body.Error.Message = messageFor(kind)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(kind))
	_ = json.NewEncoder(w).Encode(body)
}

func messageFor(kind Kind) string {
	switch kind {
	case KindNotFound:
		return "record not found"
	case KindFeedTimeout:
		return "request timed out, retry"
	default:
		return "internal error"
	}
}
