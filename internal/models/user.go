package models

import (
	"strings"
	"time"
)

// User is an authenticated human, owned by the identity side of the system.
// Users sign up with email/password or GitHub OAuth.
type User struct {
	UserID    string // opaque text id, UUIDv7 formatted
	Name      string
	Email     string // unique, stored lower-cased
	AvatarURL string

	PasswordHash string  // argon2id encoded hash, empty for OAuth-only users
	GitHubID     *string // GitHub user ID (numeric, as string)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name shown for the user, falling back to the
// local part of the email address.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
