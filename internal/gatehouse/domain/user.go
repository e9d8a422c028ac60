package domain

import (
	"strings"
	"time"
)

// User is one credential-bearing identity. Email is the stable join key
// between password registration and OAuth sign-in, so it is always stored
// normalized.
type User struct {
	ID            string
	Email         string // normalized: lower-cased, trimmed
	PasswordHash  string // argon2 encoded; random placeholder for OAuth-only accounts
	OAuthProvider *string
	OAuthSubject  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OAuthLinked reports whether an OAuth identity has been attached.
// Provider and subject are set together or not at all.
func (u User) OAuthLinked() bool {
	return u.OAuthProvider != nil && u.OAuthSubject != nil
}

// NormalizeEmail lower-cases and trims an email address. Applied before
// storage and before every comparison; idempotent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
