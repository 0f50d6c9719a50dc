package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Credential lifecycle errors
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrAccountInactive       = fmt.Errorf("account is inactive: %w", ErrUnauthorized)

	// ErrStorageTimeout is retryable by the caller
	ErrStorageTimeout = fmt.Errorf("storage operation timed out: %w", ErrInternalServer)
)
