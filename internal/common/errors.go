// Package common defines shared constants and sentinel errors used across
// gophauth components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal       = errors.New("internal error")
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// Password login outcomes.
	ErrInvalidInput  = errors.New("invalid input")
	ErrUserNotFound  = errors.New("user not found")
	ErrLocked        = errors.New("too many failed attempts")
	ErrWrongPassword = errors.New("invalid password")

	// Lockout backend failures (remote trackers only).
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")

	// External identity outcomes.
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingEmail = errors.New("missing email claim")

	// Session token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
