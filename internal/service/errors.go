// Package service holds the auth, contact and user workflows. Handlers call
// into it with already-bound input; it talks to the stores, the token
// service, the cache, the mailer and avatar storage through the interfaces
// declared here.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a user-facing failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUnprocessable
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnprocessable:
		return "unprocessable"
	}
	return "internal"
}

// Error is a failure whose Message is safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func conflict(msg string) *Error      { return newError(KindConflict, msg) }
func unauthorized(msg string) *Error  { return newError(KindUnauthorized, msg) }
func notFound(msg string) *Error      { return newError(KindNotFound, msg) }
func badRequest(msg string) *Error    { return newError(KindBadRequest, msg) }
func unprocessable(msg string) *Error { return newError(KindUnprocessable, msg) }

// KindOf returns the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func internal(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
