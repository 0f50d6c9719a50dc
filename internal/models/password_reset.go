package models

import "time"

// PasswordResetTicket is the result of a forgot-password request.
// Plaintext is handed to the delivery collaborator once and never stored.
type PasswordResetTicket struct {
	UserID    string
	Email     string
	Plaintext string
	ResetURL  string
	ExpiresAt time.Time
}
