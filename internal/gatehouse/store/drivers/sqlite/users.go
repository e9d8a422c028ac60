package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lodgepole/gatehouse/internal/gatehouse/domain"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, email, password_hash, oauth_provider, oauth_subject, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, oauth_provider, oauth_subject, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.PasswordHash,
		mapStringNull(u.OAuthProvider),
		mapStringNull(u.OAuthSubject),
		now,
		now,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// LinkOAuthIdentity is conditional on the user being unlinked, so the first
// provider wins and re-login with the same provider is a no-op.
func (r *usersRepo) LinkOAuthIdentity(ctx context.Context, userID, provider, subject string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET oauth_provider = ?, oauth_subject = ?, updated_at = ?
WHERE id = ? AND oauth_subject IS NULL`,
		provider, subject, nowUTC(), userID)
	if err != nil {
		return false, fmt.Errorf("link oauth identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, nowUTC(), userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var provider, subject sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&provider,
		&subject,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.OAuthProvider = mapNullString(provider)
	u.OAuthSubject = mapNullString(subject)
	return u, nil
}
