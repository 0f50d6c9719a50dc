package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	ResetTokenBytes         = 32 // 64 hex chars
	DefaultResetTokenExpiry = 30 * time.Minute
)

// ResetToken is a freshly issued reset token. Only Digest and ExpiresAt are persisted.
type ResetToken struct {
	Plaintext string
	Digest    string
	ExpiresAt time.Time
}

// ResetTokenCodec issues single-use reset tokens and digests candidates for lookup
type ResetTokenCodec struct {
	ttl time.Duration
	now func() time.Time
}

// NewResetTokenCodec creates a codec whose tokens expire after ttl
func NewResetTokenCodec(ttl time.Duration) *ResetTokenCodec {
	if ttl <= 0 {
		ttl = DefaultResetTokenExpiry
	}
	return &ResetTokenCodec{ttl: ttl, now: time.Now}
}

// TTL returns the validity window of issued tokens
func (c *ResetTokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue generates a random token, its digest and its expiry
func (c *ResetTokenCodec) Issue() (*ResetToken, error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	plaintext := hex.EncodeToString(tokenBytes)

	return &ResetToken{
		Plaintext: plaintext,
		Digest:    c.Digest(plaintext),
		ExpiresAt: c.now().Add(c.ttl),
	}, nil
}

// Digest returns the hex SHA-256 of a token. Deterministic, so it doubles as the lookup key.
func (c *ResetTokenCodec) Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
