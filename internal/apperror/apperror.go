package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindApp            Kind = "app"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg, Fields: fields}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

// New builds a generic application error with an explicit status.
func New(status int, msg string) *Error {
	return &Error{Kind: KindApp, Status: status, Message: msg}
}

// Wrap attaches a cause to a generic 500.
func Wrap(err error, msg string) *Error {
	return &Error{Kind: KindApp, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
