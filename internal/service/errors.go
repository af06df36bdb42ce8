// Package service implements the account, authentication and area
// operations on top of the repositories.  Services return typed errors;
// only the HTTP layer turns them into status codes.
package service

import (
	"errors"

	"github.com/samber/oops"

	"github.com/iliyamo/account-service/internal/model"
)

// Error kinds.  Every error a service returns for a caller mistake wraps
// exactly one of these so that errors.Is can classify it.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized access")
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
	Fields  []model.FieldError
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func invalidFields(fields []model.FieldError) error {
	return &Error{
		Kind:    ErrInvalidInput,
		Message: (&model.ValidationError{Fields: fields}).Error(),
		Fields:  fields,
	}
}

// IsClientError reports whether err is one of the caller-mistake kinds.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidOTP) || errors.Is(err, ErrNotFound)
}

// internal wraps an unexpected failure with the service domain and the
// operation that hit it.
func internal(op string, err error) error {
	return oops.In("service").Code("INTERNAL").With("operation", op).Wrap(err)
}
