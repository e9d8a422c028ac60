package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store"
	"github.com/lodgepole/gatehouse/pkg/cryptox"
	"github.com/lodgepole/gatehouse/pkg/idx"
	"github.com/lodgepole/gatehouse/pkg/slogx"
)

// OAuthService reconciles verified third-party identity assertions with the
// credential store. Reconciliation is keyed by normalized email so a user
// who registered with a password and later signs in with a provider ends up
// with one account, not two.
//
// The caller (the OAuth transport layer) is trusted to have verified the
// assertion cryptographically; no token or signature checks happen here.
type OAuthService struct {
	Store store.Store
}

// Assertion is the verified (provider, subject, email) tuple produced by a
// completed OAuth handshake.
type Assertion struct {
	Provider  string
	SubjectID string
	Email     string
}

// Reconcile finds or creates the user for an assertion and starts a session.
// Find-or-create and session creation run as one transaction: on any
// failure the caller sees no partial user and no partial session.
//
//   - Existing user, not yet linked: attach (provider, subject) now.
//   - Existing user, already linked: leave untouched (idempotent re-login).
//   - No user: create one with a random unusable placeholder secret.
//
// A create that loses the unique-email race against a concurrent request is
// retried once as a lookup.
func (s *OAuthService) Reconcile(ctx context.Context, a Assertion, ipAddress, userAgent string) (domain.User, domain.IssuedSession, error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(a.Email)
	if email == "" {
		return domain.User{}, domain.IssuedSession{}, &domain.OAuthError{
			Reason: "provider did not supply an email address",
		}
	}

	for attempt := range 2 {
		user, issued, err := s.reconcileOnce(ctx, a, email, ipAddress, userAgent)
		if err == nil {
			l.Info("oauth login reconciled",
				slog.String("user_id", user.ID),
				slog.String("provider", a.Provider),
			)
			return user, issued, nil
		}

		// Lost the create race; the winner's row exists now, so the retry
		// takes the lookup path.
		if errors.Is(err, store.ErrAlreadyExists) && attempt == 0 {
			continue
		}

		return domain.User{}, domain.IssuedSession{}, err
	}

	// Second attempt also conflicted; treat as a reconciliation failure.
	return domain.User{}, domain.IssuedSession{}, &domain.OAuthError{
		Reason: "could not resolve an account for this identity",
	}
}

func (s *OAuthService) reconcileOnce(ctx context.Context, a Assertion, email, ipAddress, userAgent string) (domain.User, domain.IssuedSession, error) {
	var user domain.User
	var issued domain.IssuedSession

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
			if !existing.OAuthLinked() {
				linked, err := tx.Users().LinkOAuthIdentity(ctx, existing.ID, a.Provider, a.SubjectID)
				if err != nil {
					return err
				}
				if linked {
					user.OAuthProvider = &a.Provider
					user.OAuthSubject = &a.SubjectID
				}
			}

		case errors.Is(err, store.ErrNotFound):
			created, err := newOAuthUser(email, a)
			if err != nil {
				return err
			}
			if err := tx.Users().CreateUser(ctx, created); err != nil {
				return err
			}
			user = created

		default:
			return err
		}

		issued, err = issueSession(user.ID, ipAddress, userAgent)
		if err != nil {
			return err
		}
		return tx.Sessions().CreateSession(ctx, issued.Session)
	})
	if err != nil {
		return domain.User{}, domain.IssuedSession{}, err
	}

	return user, issued, nil
}

// newOAuthUser builds a user record for an email never seen before. The
// account gets a hashed random secret so the row is never left without a
// password hash; nobody can log in with it.
func newOAuthUser(email string, a Assertion) (domain.User, error) {
	placeholder, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.User{}, fmt.Errorf("generate placeholder secret: %w", err)
	}
	placeholderHash, err := cryptox.HashPassword(placeholder)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash placeholder secret: %w", err)
	}

	return domain.User{
		ID:            idx.New().String(),
		Email:         email,
		PasswordHash:  placeholderHash,
		OAuthProvider: &a.Provider,
		OAuthSubject:  &a.SubjectID,
	}, nil
}
