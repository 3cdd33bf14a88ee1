package blackduck

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies client errors by cause so callers can decide whether
// to retry, re-authenticate, or surface the failure as-is.
type ErrorKind int

const (
	// KindUnknown is an error that fits no other kind.
	KindUnknown ErrorKind = iota
	// KindValidation is a missing or malformed input (HTTP 400).
	KindValidation
	// KindAuthentication is a rejected or expired credential (HTTP 401/403).
	KindAuthentication
	// KindNotFound is a resource that does not exist (HTTP 404).
	KindNotFound
	// KindRateLimit is a throttled request (HTTP 429).
	KindRateLimit
	// KindNetwork is a request that never produced an HTTP response.
	KindNetwork
	// KindServer is a 5xx response or an undecodable reply.
	KindServer
	// KindUnknownOrigin marks a vulnerability whose origin cannot be
	// determined, which makes origin-keyed lookups impossible.
	KindUnknownOrigin
)

// String returns the label used to prefix rendered error messages.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindNotFound:
		return "NotFoundError"
	case KindRateLimit:
		return "RateLimitError"
	case KindNetwork:
		return "NetworkError"
	case KindServer:
		return "ServerError"
	case KindUnknownOrigin:
		return "UnknownOriginError"
	default:
		return "UnknownError"
	}
}

// Error is a classified client error. It renders as "<Kind>: <message>".
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a classified error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an existing error while keeping it unwrappable.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: err}
}

// KindOf returns err's classification, or KindUnknown when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is classified as a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsAuthentication reports whether err is classified as a credential failure.
func IsAuthentication(err error) bool {
	return KindOf(err) == KindAuthentication
}

// IsUnknownOrigin reports whether err is classified as an unresolvable origin.
func IsUnknownOrigin(err error) bool {
	return KindOf(err) == KindUnknownOrigin
}

// kindFromStatus maps an HTTP status code to an error kind.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}
