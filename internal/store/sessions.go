package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateSession inserts a session token.
func (s *Store) CreateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("nil session")
	}
	if strings.TrimSpace(session.Token) == "" {
		return errors.New("session token must not be empty")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (token, created_at, expires_at) VALUES (?, ?, ?)",
			session.Token, formatTime(session.CreatedAt), formatTime(session.ExpiresAt))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: session: %w", ErrConstraint, err)
			}
			return fmt.Errorf("insert session: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionSessions)
	})
}

// GetSession fetches an unexpired session. Expired or unknown tokens return
// ErrNotFound.
func (s *Store) GetSession(ctx context.Context, token string) (*Session, error) {
	ctx = ensureContext(ctx)

	var (
		session   Session
		createdAt string
		expiresAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT token, created_at, expires_at FROM sessions WHERE token = ?", token).
		Scan(&session.Token, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("session: created_at: %w", err)
	}
	session.ExpiresAt, err = parseTime(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("session: expires_at: %w", err)
	}

	if !session.ExpiresAt.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: session expired", ErrNotFound)
	}
	return &session, nil
}

// DeleteSession removes a token. Unknown tokens are a no-op.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionSessions)
	})
}

// PurgeExpiredSessions deletes sessions past their expiry and returns how
// many were removed.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	var purged int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM sessions WHERE expires_at <= ?", formatTime(time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		purged, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if purged == 0 {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionSessions)
	})
	return purged, err
}
