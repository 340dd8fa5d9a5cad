package platform

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes platform API failures so callers can decide
// disposition without string-matching messages.
type ErrorKind string

const (
	// KindAuth means the session is missing, expired, or rejected.
	// Fatal for the current source cycle.
	KindAuth ErrorKind = "auth"
	// KindRateLimited means the platform throttled us. The transport retries
	// these automatically; seeing one here means retries were exhausted.
	KindRateLimited ErrorKind = "rate_limited"
	// KindNotFound means the requested source or video does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindMalformed means the response body could not be decoded.
	KindMalformed ErrorKind = "malformed_response"
	// KindTransient covers network-level failures worth retrying next cycle.
	KindTransient ErrorKind = "network_transient"
)

// Error is a categorized platform API error.
type Error struct {
	Kind    ErrorKind
	Code    int // platform-side status code, 0 if not applicable
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("platform %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("platform %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// newError builds a categorized error wrapping an underlying cause.
func newError(kind ErrorKind, code int, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, err: err}
}

// KindOf returns the error kind, or KindTransient for uncategorized errors.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsFatal reports whether the error should terminate a source's cycle
// rather than be skipped at item granularity.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindNotFound:
		return true
	}
	return false
}
