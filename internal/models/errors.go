package models

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("access denied")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrDuplicate    = errors.New("duplicate record")
	ErrAlreadyRated = errors.New("already rated")
)
