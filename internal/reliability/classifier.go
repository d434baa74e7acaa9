// Package reliability defines the caller-visible error taxonomy and the
// classification of upstream failures.
package reliability

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the JSON-describable error type surfaced to callers.
type Kind string

const (
	KindRequest    Kind = "request_error"
	KindProcessing Kind = "processing_error"
	KindOverloaded Kind = "overloaded_error"
	KindUpstream   Kind = "upstream_error"
	KindStore      Kind = "store_error"
)

// Error is a classified failure of one request cycle.
type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream status code when the failure came from a provider.
	Status int
	// Retryable is set only for overload signals; nothing here retries.
	Retryable  bool
	RetryAfter string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error onto the status returned to the caller.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindRequest:
		return http.StatusBadRequest
	case KindOverloaded:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusServiceUnavailable
	case KindUpstream:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts a classified error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsOverloadStatus classifies provider capacity and rate signals.
// 529 is the Anthropic overloaded status.
func IsOverloadStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, 529:
		return true
	default:
		return false
	}
}

// IsOverloadErrorType classifies provider error type strings.
func IsOverloadErrorType(errorType string) bool {
	switch errorType {
	case "overloaded_error", "rate_limit_error":
		return true
	default:
		return false
	}
}
