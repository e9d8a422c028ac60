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

// MinPasswordLength is the minimum accepted password length for
// registration.
const MinPasswordLength = 8

const emailTakenMessage = "has already been taken"

// RegistrationService creates password-based accounts. Registration always
// leaves the caller authenticated: the user insert and the first session
// insert commit in one transaction.
type RegistrationService struct {
	Store store.Store
}

type RegisterRequest struct {
	Email                string
	Password             string
	PasswordConfirmation string
	IPAddress            string
	UserAgent            string
}

func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (domain.User, domain.IssuedSession, error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(req.Email)

	verr := domain.NewValidationError()
	if email == "" {
		verr.Add("email", "can't be blank")
	}
	if req.Password == "" {
		verr.Add("password", "can't be blank")
	} else if len(req.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("is too short (minimum is %d characters)", MinPasswordLength))
	}
	if req.PasswordConfirmation != req.Password {
		verr.Add("password_confirmation", "doesn't match password")
	}
	if verr.HasErrors() {
		return domain.User{}, domain.IssuedSession{}, verr
	}

	// Advisory uniqueness check for a friendly error in the common case.
	// The unique index on email remains the authority under concurrency.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		verr.Add("email", emailTakenMessage)
		return domain.User{}, domain.IssuedSession{}, verr
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.IssuedSession{}, err
	}

	passwordHash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, domain.IssuedSession{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	issued, err := issueSession(user.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return domain.User{}, domain.IssuedSession{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Sessions().CreateSession(ctx, issued.Session)
	})
	if err != nil {
		// Lost the race against a concurrent registration for the same
		// email: surface it exactly like the advisory check would have.
		if errors.Is(err, store.ErrAlreadyExists) {
			verr.Add("email", emailTakenMessage)
			return domain.User{}, domain.IssuedSession{}, verr
		}
		return domain.User{}, domain.IssuedSession{}, err
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return user, issued, nil
}
