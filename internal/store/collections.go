package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateCollection inserts a named collection. Names are unique.
func (s *Store) CreateCollection(ctx context.Context, collection *Collection) error {
	if collection == nil {
		return errors.New("nil collection")
	}
	if strings.TrimSpace(collection.ID) == "" {
		return errors.New("collection id must not be empty")
	}
	if strings.TrimSpace(collection.Name) == "" {
		return errors.New("collection name must not be empty")
	}
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO collections (id, name, created_at) VALUES (?, ?, ?)",
			collection.ID, collection.Name, formatTime(collection.CreatedAt))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: collection %q: %w", ErrConstraint, collection.Name, err)
			}
			return fmt.Errorf("insert collection: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionCollections)
	})
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]*Collection, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM collections ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var collections []*Collection
	for rows.Next() {
		var (
			collection Collection
			createdAt  string
		)
		if err := rows.Scan(&collection.ID, &collection.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		collection.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("collection %s: created_at: %w", collection.ID, err)
		}
		collections = append(collections, &collection)
	}
	return collections, rows.Err()
}

// AddToCollection links a media record into a collection. Re-adding an
// existing member is a no-op.
func (s *Store) AddToCollection(ctx context.Context, collectionID, mediaID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO collection_items (collection_id, media_id, added_at)
			VALUES (?, ?, ?)`,
			collectionID, mediaID, formatTime(time.Now().UTC()))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: collection %s member %s: %w", ErrConstraint, collectionID, mediaID, err)
			}
			return fmt.Errorf("add collection member: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionCollections)
	})
}

// CollectionMembers returns the media records in a collection, newest first.
func (s *Store) CollectionMembers(ctx context.Context, collectionID string) ([]*MediaRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.kind, m.title, m.path, m.size_bytes, m.source, m.added_at
		FROM media m
		JOIN collection_items ci ON ci.media_id = m.id
		WHERE ci.collection_id = ?
		ORDER BY ci.added_at DESC`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("list collection members: %w", err)
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

// DeleteCollection removes a collection and its membership rows.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete collection %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		if !deleted {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionCollections)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: collection %s", ErrNotFound, id)
	}
	return nil
}
