// Package apperr holds the error kinds shared by the domain packages. Domain
// packages wrap one of these sentinels so the HTTP layer can pick a status
// code with errors.Is without knowing every individual error.
package apperr

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrRule         = errors.New("business rule violated")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Detailer is implemented by errors that carry extra response fields.
type Detailer interface {
	Details() map[string]any
}

// Validation returns an error wrapping ErrValidation with msg as its text.
func Validation(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// NotFound returns an error wrapping ErrNotFound with msg as its text.
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// Rule returns an error wrapping ErrRule with msg as its text.
func Rule(msg string) error {
	return &kindError{kind: ErrRule, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
