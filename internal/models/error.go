package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Input validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Login flow errors
	ErrClientBanned = errors.New("client is banned")
	ErrLoginLocked  = errors.New("too many failed login attempts")
	ErrInvalidLogin = errors.New("invalid username or password")
)
