package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
	"github.com/lodgepole/gatehouse/internal/gatehouse/store"
	"github.com/lodgepole/gatehouse/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "gatehouse.db") +
		"?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	st, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newUser(email string) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "argon2id-placeholder",
	}
}

func TestUsersUniqueEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Users().CreateUser(ctx, newUser("dup@example.com")))

	err := st.Users().CreateUser(ctx, newUser("dup@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	u := newUser("lookup@example.com")
	require.NoError(t, st.Users().CreateUser(ctx, u))

	t.Run("by id", func(t *testing.T) {
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, got.Email)
		require.False(t, got.CreatedAt.IsZero())
		require.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("by email", func(t *testing.T) {
		got, err := st.Users().GetUserByEmail(ctx, "lookup@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Nil(t, got.OAuthProvider)
		require.Nil(t, got.OAuthSubject)
	})

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.Users().GetUserByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestLinkOAuthIdentityOnlyOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	u := newUser("link@example.com")
	require.NoError(t, st.Users().CreateUser(ctx, u))

	linked, err := st.Users().LinkOAuthIdentity(ctx, u.ID, "google", "sub-1")
	require.NoError(t, err)
	require.True(t, linked)

	// Second link attempt is refused and leaves the first intact.
	linked, err = st.Users().LinkOAuthIdentity(ctx, u.ID, "github", "sub-2")
	require.NoError(t, err)
	require.False(t, linked)

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OAuthProvider)
	require.Equal(t, "google", *got.OAuthProvider)
	require.Equal(t, "sub-1", *got.OAuthSubject)
}

func TestDeleteUserCascadesSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	u := newUser("cascade@example.com")
	require.NoError(t, st.Users().CreateUser(ctx, u))

	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "fingerprint-1",
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, sess))

	require.NoError(t, st.Users().DeleteUser(ctx, u.ID))

	_, err := st.Sessions().GetSessionByTokenHash(ctx, "fingerprint-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, newUser("rollback@example.com")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetUserByEmail(ctx, "rollback@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)

	u := newUser("rotate@example.com")
	require.NoError(t, st.Users().CreateUser(ctx, u))

	require.NoError(t, st.Users().UpdatePasswordHash(ctx, u.ID, "new-hash"))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
}
