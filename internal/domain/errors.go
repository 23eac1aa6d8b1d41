package domain

import "errors"

var (
	ErrForbidden        = errors.New("forbidden")
	ErrBlocked          = errors.New("user blocked")
	ErrNotFound         = errors.New("not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrValidationFailed = errors.New("validation failed")
	ErrPersistence      = errors.New("persistence failure")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
