package models

import (
	"time"
)

// AccountStatus is the admin-controlled activation flag on an account
type AccountStatus string

const (
	StatusActive   AccountStatus = "Active"
	StatusInactive AccountStatus = "Inactive"
)

// User is the credential record for a back-office staff account
type User struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Email               string        `json:"email"`
	PasswordHash        string        `json:"-"` // bcrypt verifier
	Status              AccountStatus `json:"status"`
	ResetTokenHash      *string       `json:"-"` // SHA-256 digest of the pending reset token
	ResetTokenExpiresAt *time.Time    `json:"-"` // set iff ResetTokenHash is set
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// IsActive reports whether the account may log in
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasPendingReset reports whether a reset token digest is stored for the account
func (u *User) HasPendingReset() bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil
}

// UserResponse is the only user representation that crosses the API boundary
type UserResponse struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Status AccountStatus `json:"status"`
}

// ToResponse projects the record onto its public fields
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Status: u.Status,
	}
}
