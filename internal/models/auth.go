package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only session token type issued
const TokenTypeAccess = "access"

// TokenClaims is the signed payload of a session token
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    *UserResponse `json:"user"`
}
