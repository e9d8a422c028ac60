package domain

import "time"

// Session is one authenticated browser/client context. The opaque token
// handed to the client is never stored; only its SHA-256 fingerprint is.
// IP address and user agent are captured for audit only and never consulted
// in authorization decisions.
type Session struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 of the opaque token
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// IssuedSession couples a freshly persisted session with the opaque token
// the transport layer sets as the cookie value. The token is only available
// at creation time.
type IssuedSession struct {
	Session Session
	Token   string
}
