package storage

import (
	"context"
	"fmt"
	"time"

	"financas/internal/core"
)

// Session is a server-side login session joined with its user.
type Session struct {
	Token        string
	User         core.User
	ExpiresAt    time.Time
	LastActivity time.Time
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.Unix(), r.now().Unix())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns the unexpired session for token, or core.ErrNotFound.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.token, s.expires_at, s.last_activity, u.id, u.username, u.email, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, r.now().Unix())

	var (
		s                  Session
		expires, last, cre int64
	)
	err := row.Scan(&s.Token, &expires, &last, &s.User.ID, &s.User.Username, &s.User.Email, &cre)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", notFound(err))
	}
	s.ExpiresAt = fromUnix(expires)
	s.LastActivity = fromUnix(last)
	s.User.CreatedAt = fromUnix(cre)
	return s, nil
}

// RenewSession moves the expiry of token forward.
func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ?, last_activity = ? WHERE token = ?`,
		expiresAt.Unix(), r.now().Unix(), token)
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes expired sessions and returns how many went.
func (r *SQLiteRepository) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
