package services

import "errors"

var (
	ErrEmptyPatch         = errors.New("patch has no fields to update")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrNoSession          = errors.New("no active session")
)
