package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// PermissionError is returned when the acting user may not perform an operation.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) *PermissionError {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string {
	return err.message
}

var ErrPermissionDenied = NewPermissionError("permission denied")

// NotFoundError is returned when a requested entity does not exist.
type NotFoundError struct {
	entity string
}

func NewNotFoundError(entity string) *NotFoundError {
	return &NotFoundError{entity: entity}
}

func (err NotFoundError) Error() string {
	return err.entity + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*PermissionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
