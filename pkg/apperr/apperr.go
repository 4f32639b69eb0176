// Package apperr defines the domain error shared by the external data
// adapters, the assistant and the HTTP layer. Messages are user facing
// (pt-BR) and are shown verbatim.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindNetwork      Kind = "network"
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindAuth         Kind = "auth"
	KindInternal     Kind = "internal"
)

// Error carries a kind, a human readable message and the cause.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Network(message string, err error) *Error {
	return New(KindNetwork, message, err)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message, nil)
}

func Auth(message string, err error) *Error {
	return New(KindAuth, message, err)
}

func Internal(message string, err error) *Error {
	return New(KindInternal, message, err)
}

// KindOf reports the kind of err, KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user facing message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// StatusMessages holds the per-provider wording used by FromStatus.
type StatusMessages struct {
	NotFound string
	Auth     string
	Default  string
	// ByStatus overrides the network message for specific statuses.
	ByStatus map[int]string
}

// FromStatus maps a non-2xx upstream status to a domain error.
func FromStatus(status int, msgs StatusMessages, err error) *Error {
	if msg, ok := msgs.ByStatus[status]; ok {
		return New(KindNetwork, msg, err)
	}
	switch {
	case status == http.StatusNotFound && msgs.NotFound != "":
		return New(KindNotFound, msgs.NotFound, err)
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && msgs.Auth != "":
		return New(KindAuth, msgs.Auth, err)
	default:
		return New(KindNetwork, msgs.Default, err)
	}
}

// HTTPStatus is the status the API answers with for a given kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth, KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
