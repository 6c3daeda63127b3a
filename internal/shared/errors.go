// Package shared defines sentinel errors used across Messagely layers.
// Callers match these values with errors.Is.
package shared

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorValidation    = errors.New("validation error")

	// Reset-flow errors. Wrong code and elapsed window map to the same
	// value so callers cannot disclose which one occurred.
	ErrorInvalidOrExpiredCode = errors.New("invalid or expired reset code")

	// Auth errors (invalid, expired, or malformed session token).
	ErrorInvalidToken = errors.New("invalid token")
)
