// Package common defines shared constants and sentinel errors used across
// the sortedstorage client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// API-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrUnavailable    = errors.New("server unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrNotLoggedIn  = errors.New("not logged in")

	// Upload lifecycle errors.
	ErrUploadCancelled = errors.New("upload cancelled")
)
