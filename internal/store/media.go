package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const mediaColumns = "id, kind, title, path, size_bytes, source, added_at"

// CreateMedia inserts a new library entry.
func (s *Store) CreateMedia(ctx context.Context, record *MediaRecord) error {
	if record == nil {
		return errors.New("nil media record")
	}
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("media id must not be empty")
	}
	if strings.TrimSpace(record.Path) == "" {
		return errors.New("media path must not be empty")
	}
	if record.AddedAt.IsZero() {
		record.AddedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.ID, string(record.Kind), record.Title, record.Path,
			record.SizeBytes, record.Source, formatTime(record.AddedAt))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: media %s: %w", ErrConstraint, record.ID, err)
			}
			return fmt.Errorf("insert media: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionMedia)
	})
}

// GetMedia fetches one library entry by id.
func (s *Store) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+mediaColumns+" FROM media WHERE id = ?", id)
	record, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: media %s", ErrNotFound, id)
	}
	return record, err
}

// ListMedia returns library entries, optionally filtered by kind, newest
// first.
func (s *Store) ListMedia(ctx context.Context, kind MediaKind) ([]*MediaRecord, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + mediaColumns + " FROM media"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY added_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		record, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateMediaTitle is the explicit post-creation update path for library
// entries.
func (s *Store) UpdateMediaTitle(ctx context.Context, id, title string) error {
	var updated bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE media SET title = ? WHERE id = ?", title, id)
		if err != nil {
			return fmt.Errorf("update media %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		updated = affected > 0
		if !updated {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionMedia)
	})
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%w: media %s", ErrNotFound, id)
	}
	return nil
}

// DeleteMedia removes one library entry.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete media %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		if !deleted {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionMedia)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: media %s", ErrNotFound, id)
	}
	return nil
}

func scanMedia(row rowScanner) (*MediaRecord, error) {
	var (
		record  MediaRecord
		kind    string
		addedAt string
	)
	if err := row.Scan(&record.ID, &kind, &record.Title, &record.Path,
		&record.SizeBytes, &record.Source, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan media: %w", err)
	}
	record.Kind = MediaKind(kind)
	var err error
	record.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("media %s: added_at: %w", record.ID, err)
	}
	return &record, nil
}
