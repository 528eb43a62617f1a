package domain

import "time"

// Pending-code purposes recognised by the store.
const (
	PurposeRegistration  = "registration"
	PurposePasswordReset = "password_reset"
	PurposeOAuthState    = "oauth_state"
)

// PendingCode is a short-lived secret staged against an identifier (usually
// an email address) until the owner proves control of it. Registration
// records additionally stage the candidate username and pre-hashed password;
// reset and state records leave those fields empty.
type PendingCode struct {
	Code         string
	Username     string
	PasswordHash string
	Attempts     int
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the record's TTL has elapsed at the given instant.
func (p PendingCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
