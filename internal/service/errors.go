package service

import "errors"

var (
	ErrEmptyPassword    = errors.New("empty password")
	ErrPasswordLength   = errors.New("password must be at least 8 characters")
	ErrEmptyCredential  = errors.New("username and password are required")
	ErrEmptyFingerprint = errors.New("device fingerprint is required")
	ErrUsernameTaken    = errors.New("username already taken")
)
