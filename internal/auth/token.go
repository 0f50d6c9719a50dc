package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/backoffice/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies HS256 session tokens. It holds no mutable
// state after construction and is safe for concurrent use.
type TokenManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
	issuer            string
	now               func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessExpiry,
		issuer:            issuer,
		now:               time.Now,
	}
}

// GenerateAccessToken creates a session token bound to userID
func (tm *TokenManager) GenerateAccessToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("cannot issue token: %w", models.ErrValidation)
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims. Every failure wraps
// models.ErrUnauthorized.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token: %w", models.ErrUnauthorized)
	}

	claims := &models.TokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to parse token: %v: %w", err, models.ErrUnauthorized)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeAccess {
		return nil, fmt.Errorf("invalid token type %q: %w", claims.Type, models.ErrUnauthorized)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user id: %w", models.ErrUnauthorized)
	}

	return claims, nil
}
