package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store"
	"github.com/lodgepole/gatehouse/pkg/cryptox"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// PasswordService validates email/password pairs and runs the rate-limited
// login entry point.
type PasswordService struct {
	Store    store.Store
	Limiter  *LoginLimiter
	Sessions *SessionService
}

// LoginRequest carries one password-login attempt. ClientKey identifies the
// client for rate limiting (the transport layer passes the client address).
type LoginRequest struct {
	Email     string
	Password  string
	ClientKey string
	IPAddress string
	UserAgent string
}

// Authenticate verifies an email/password pair. Unknown email and wrong
// password both return domain.ErrInvalidCredentials so callers cannot learn
// whether an email is registered. No side effects beyond the lookup.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	return user, nil
}

// Login is the password-login entry point: consume limiter quota, then
// authenticate, then start a session. Every attempt consumes quota whether
// or not the credentials are valid, and a limited client is rejected before
// any hash work happens.
func (s *PasswordService) Login(ctx context.Context, req LoginRequest) (domain.User, domain.IssuedSession, error) {
	l := slogx.FromContext(ctx)

	if s.Limiter != nil && !s.Limiter.Allow(req.ClientKey) {
		l.Warn("login attempt rate limited", slog.String("client_key", req.ClientKey))
		return domain.User{}, domain.IssuedSession{}, domain.ErrRateLimited
	}

	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return domain.User{}, domain.IssuedSession{}, err
	}

	issued, err := s.Sessions.Start(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return domain.User{}, domain.IssuedSession{}, err
	}

	l.Info("password login succeeded", slog.String("user_id", user.ID))
	return user, issued, nil
}
