// Package common defines shared constants and sentinel errors used across
// the server layers of authkeeper. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Token codec errors (malformed token or re-derivation mismatch).
	ErrInvalidToken = errors.New("invalid token")
)
