// Package common defines shared constants and sentinel errors used across
// the Lexify server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")

	// Service-level errors.
	ErrValidation  = errors.New("validation error")
	ErrPersistence = errors.New("persistence error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrSuspended    = errors.New("account suspended")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
