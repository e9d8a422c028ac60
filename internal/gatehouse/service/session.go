package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store"
	"github.com/lodgepole/gatehouse/pkg/cryptox"
	"github.com/lodgepole/gatehouse/pkg/idx"
)

// SessionService owns session records. Sessions have no TTL: they live until
// explicit logout, logout-everywhere, or deletion of the owning user (the
// schema cascades). Multiple concurrent sessions per user are expected.
type SessionService struct {
	Store store.Store
}

// issueSession builds a session record plus the opaque token the client will
// hold. The record stores only the token's fingerprint. Shared by Start and
// by the registration/reconciliation transactions, which persist the record
// themselves to stay atomic with the user insert.
func issueSession(userID, ipAddress, userAgent string) (domain.IssuedSession, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.IssuedSession{}, fmt.Errorf("generate session token: %w", err)
	}

	return domain.IssuedSession{
		Session: domain.Session{
			ID:        idx.New().String(),
			UserID:    userID,
			TokenHash: cryptox.FingerprintToken(token),
			IPAddress: ipAddress,
			UserAgent: userAgent,
		},
		Token: token,
	}, nil
}

// Start creates and persists a new session for a persisted user.
func (s *SessionService) Start(ctx context.Context, user domain.User, ipAddress, userAgent string) (domain.IssuedSession, error) {
	issued, err := issueSession(user.ID, ipAddress, userAgent)
	if err != nil {
		return domain.IssuedSession{}, err
	}

	if err := s.Store.Sessions().CreateSession(ctx, issued.Session); err != nil {
		return domain.IssuedSession{}, fmt.Errorf("create session: %w", err)
	}
	return issued, nil
}

// Resolve returns the user owning the session identified by the opaque
// token. A token that was never issued, was logged out, or whose owner was
// deleted reports domain.ErrUnauthenticated.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}

	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthenticated
		}
		return domain.User{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		// The cascade makes this unreachable in practice, but a dangling
		// session must never authenticate.
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthenticated
		}
		return domain.User{}, err
	}

	return user, nil
}

// Terminate deletes the session for the given token. Unknown and
// already-terminated tokens are a no-op.
func (s *SessionService) Terminate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
}

// TerminateAll logs a user out everywhere.
func (s *SessionService) TerminateAll(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeleteUserSessions(ctx, userID)
}

// List returns the user's sessions, newest first, for the audit view.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}
