package storage

import (
	"context"
	"fmt"
	"strings"

	"financas/internal/core"
)

// CreateUser inserts a new account. A taken username yields ErrDuplicate.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		username, strings.TrimSpace(email), passwordHash, now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %q: %w", username, ErrDuplicate)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: last insert id: %w", err)
	}
	return core.User{
		ID:        id,
		Username:  username,
		Email:     strings.TrimSpace(email),
		CreatedAt: fromUnix(now.Unix()),
	}, nil
}

// UsernameExists reports whether username is taken.
func (r *SQLiteRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}

// GetCredentials returns the user and their password hash.
func (r *SQLiteRepository) GetCredentials(ctx context.Context, username string) (core.User, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at, password_hash FROM users WHERE username = ?`, username)
	var (
		u       core.User
		created int64
		hash    string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &created, &hash); err != nil {
		return core.User{}, "", fmt.Errorf("get credentials: %w", notFound(err))
	}
	u.CreatedAt = fromUnix(created)
	return u, hash, nil
}

// UpdatePassword replaces the stored hash for username.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update password for %q: %w", username, core.ErrNotFound)
	}
	return nil
}
