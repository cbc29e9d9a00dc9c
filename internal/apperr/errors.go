// Package apperr holds the sentinel errors the HTTP layer maps to status codes.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
	ErrConflict = errors.New("conflict")
)
