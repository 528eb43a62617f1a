package domain

import "time"

// UserRole enumerates account privilege levels.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	IsVerified   bool
	GoogleID     *string
	AuthProvider *string
	Avatar       *string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// IsAdmin reports whether the user holds the elevated role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ExternalProfile is the normalized identity returned by an OAuth provider.
type ExternalProfile struct {
	ProviderID  string
	Provider    string
	Email       string
	DisplayName string
	AvatarURL   string
}
