package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 6  // characters
	MaxPasswordBytes  = 72 // bcrypt ignores input past 72 bytes
)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "password " + e.Errors[0]
}

// PasswordHasher turns plaintext passwords into salted bcrypt verifiers
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
// Out-of-range costs fall back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a new verifier; bcrypt salts every call so repeated hashes differ
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches verifier. A malformed verifier is a mismatch.
func (h *PasswordHasher) Verify(password, verifier string) bool {
	if verifier == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(password)) == nil
}

// ValidatePassword enforces the password length policy
func ValidatePassword(password string) error {
	errs := make([]string, 0)

	if utf8.RuneCountInString(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}
