package service

import (
	"context"
	"sync"
	"testing"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &RegistrationService{Store: newTestStore(t)}

	t.Run("blank email rejected", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email:                "   ",
			Password:             "long-enough-pw",
			PasswordConfirmation: "long-enough-pw",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
	})

	t.Run("blank password rejected", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email: "blank-pw@example.com",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "can't be blank", verr.Fields["password"])
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email:                "short-pw@example.com",
			Password:             "short",
			PasswordConfirmation: "short",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields["password"], "too short")
	})

	t.Run("mismatched confirmation rejected", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email:                "mismatch@example.com",
			Password:             "long-enough-pw",
			PasswordConfirmation: "different-enough",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "doesn't match password", verr.Fields["password_confirmation"])
	})

	t.Run("multiple failures reported together", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
		require.Contains(t, verr.Fields, "password")
	})
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	reg := &RegistrationService{Store: st}
	sessions := &SessionService{Store: st}

	user, issued, err := reg.Register(ctx, RegisterRequest{
		Email:                "  New.User@Example.COM ",
		Password:             "correct-horse",
		PasswordConfirmation: "correct-horse",
		IPAddress:            "203.0.113.9",
		UserAgent:            "test-agent",
	})
	require.NoError(t, err)

	// Email is stored normalized.
	require.Equal(t, "new.user@example.com", user.Email)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, user.PasswordHash)
	require.NotEqual(t, "correct-horse", user.PasswordHash)

	// The returned token resolves straight back to the new user.
	resolved, err := sessions.Resolve(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)

	// The session record carries the client metadata but never the token.
	list, err := sessions.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "203.0.113.9", list[0].IPAddress)
	require.Equal(t, "test-agent", list[0].UserAgent)
	require.NotEqual(t, issued.Token, list[0].TokenHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &RegistrationService{Store: newTestStore(t)}

	_, _, err := svc.Register(ctx, RegisterRequest{
		Email:                "taken@example.com",
		Password:             "first-password",
		PasswordConfirmation: "first-password",
	})
	require.NoError(t, err)

	t.Run("exact duplicate rejected", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email:                "taken@example.com",
			Password:             "other-password",
			PasswordConfirmation: "other-password",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "has already been taken", verr.Fields["email"])
	})

	t.Run("case and whitespace variants collide", func(t *testing.T) {
		_, _, err := svc.Register(ctx, RegisterRequest{
			Email:                "  TAKEN@Example.Com ",
			Password:             "other-password",
			PasswordConfirmation: "other-password",
		})

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "has already been taken", verr.Fields["email"])
	})
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	svc := &RegistrationService{Store: st}

	const racers = 2
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.Register(ctx, RegisterRequest{
				Email:                "race@example.com",
				Password:             "raced-password",
				PasswordConfirmation: "raced-password",
			})
		}()
	}
	wg.Wait()

	// Exactly one registration wins; the loser gets the same validation
	// error a sequential duplicate would.
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "has already been taken", verr.Fields["email"])
	}
	require.Equal(t, 1, winners)

	count, err := st.Users().CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
