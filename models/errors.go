package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind tags an Error so callers can branch without inspecting messages
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindDuplicate   ErrorKind = "duplicate"
	KindCORS        ErrorKind = "cors"
	KindRateLimited ErrorKind = "rate_limited"
	KindUpstream    ErrorKind = "upstream"
	KindFetch       ErrorKind = "fetch"
	KindParse       ErrorKind = "parse"
)

// Error is the tagged error variant shared by the gateway and the portal.
// It is built where the failure originates; Status is the HTTP status when
// one was observed.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an Error of the given kind around a cause
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewFetchError builds the error returned for a non-2xx response
func NewFetchError(status int, code, message string) *Error {
	kind := KindFetch
	if status == http.StatusTooManyRequests {
		kind = KindRateLimited
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Code: code, Message: message, Status: status}
}

// KindOf returns the kind of the first Error in the chain, or "" if none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status recorded on err, or 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// MessageOf returns the human readable message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsRateLimited reports whether err signals upstream rate limiting. SDK and
// transport errors do not always carry a status, so their message is checked
// too; an Error is judged by its kind and status only.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindRateLimited || e.Status == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// IsTerminal reports whether err must never be retried
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindCORS, KindDuplicate, KindNotFound:
		return true
	}
	switch StatusOf(err) {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
