package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrSessionClosed = errors.New("session closed")
	ErrInvalidInput  = errors.New("invalid input")
)
