// Package failure classifies everything that can stop a review run.
//
// Every error that leaves a package boundary is wrapped in an *Error carrying
// a Kind, so the top-level command can decide what to do per kind without
// string matching. The run itself still halts on the first error.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error class.
type Kind string

const (
	KindConfig Kind = "config"
	KindAuth   Kind = "auth"
	KindIO     Kind = "io"
	KindRemote Kind = "remote"
	KindDecode Kind = "decode"
)

// Error is the discriminated error returned by every operation.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "language detection".
	Op string
	// StatusCode is the HTTP status for remote/auth errors, zero otherwise.
	StatusCode int
	// Transient marks remote errors worth retrying (rate limits, 5xx, timeouts).
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Config wraps a configuration error (missing or invalid endpoint, bad setting).
func Config(op string, err error) error { return newError(KindConfig, op, err) }

// Auth wraps a credential or authorization error.
func Auth(op string, err error) error { return newError(KindAuth, op, err) }

// IO wraps a folder or file error.
func IO(op string, err error) error { return newError(KindIO, op, err) }

// Decode wraps an unexpected response shape.
func Decode(op string, err error) error { return newError(KindDecode, op, err) }

// Remote wraps a failed remote call. The status code decides transience;
// pass 0 for transport-level failures.
func Remote(op string, status int, err error) error {
	e := newError(KindRemote, op, err)
	e.StatusCode = status
	e.Transient = status == 0 || status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout || status >= 500
	return e
}

// FromStatus picks auth for 401/403 and remote for everything else.
func FromStatus(op string, status int, err error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e := newError(KindAuth, op, err)
		e.StatusCode = status
		return e
	}
	return Remote(op, status, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransient reports whether err is a remote error worth retrying.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRemote && e.Transient
}

// Exit codes used by the strict CLI mode.
const (
	ExitOK      = 0
	ExitUnknown = 1
	ExitConfig  = 2
	ExitAuth    = 3
	ExitIO      = 4
	ExitRemote  = 5
	ExitDecode  = 6
)

// ExitCode maps err onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindAuth:
		return ExitAuth
	case KindIO:
		return ExitIO
	case KindRemote:
		return ExitRemote
	case KindDecode:
		return ExitDecode
	default:
		return ExitUnknown
	}
}
