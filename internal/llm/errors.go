package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

type Kind string

const (
	KindUnconfiguredCredentials Kind = "unconfigured_credentials"
	KindRateLimited             Kind = "rate_limited"
	KindTransport               Kind = "transport"
	KindParse                   Kind = "parse"
	KindOther                   Kind = "other"
)

// Error is a backend failure tagged with the category the reply pipeline
// turns into user-facing text. Error() is the underlying description.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, backend string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Err: err}
}

func Errorf(kind Kind, backend string, format string, args ...any) *Error {
	return &Error{Kind: kind, Backend: backend, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the category of err, or "" when err carries none.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// KindForStatus maps an HTTP status from a provider API. code is the
// provider's machine-readable error code when one was returned.
func KindForStatus(status int, code string) Kind {
	code = strings.ToLower(code)
	switch {
	case status == 401 || status == 403:
		return KindUnconfiguredCredentials
	case status == 429 || status == 402 || strings.Contains(code, "quota") || strings.Contains(code, "billing"):
		return KindRateLimited
	case status >= 500:
		return KindTransport
	default:
		return KindOther
	}
}

// IsTransport reports whether err is a network-level failure. Context
// cancellation is not one: the caller asked for it.
func IsTransport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
