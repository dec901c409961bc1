package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/dbx"
)

// SQLiteRepository implements Repository over *sql.DB. Clear spans two
// tables and runs inside a transaction.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) RecordAccess(ctx context.Context, item models.Item, access models.AccessType, at time.Time) error {
	query := `INSERT INTO recent_items (item_id, name, type, path, size, mime_type, access_type, access_count, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			path = excluded.path,
			size = excluded.size,
			mime_type = excluded.mime_type,
			access_type = excluded.access_type,
			access_count = recent_items.access_count + 1,
			accessed_at = excluded.accessed_at
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, string(item.Type), item.Path, item.Size, item.MimeType, string(access), at.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert access record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.RecentItem, error) {
	query := `SELECT item_id, name, type, path, size, mime_type, access_type, access_count, accessed_at
		FROM recent_items ORDER BY accessed_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select recent items: %w", err)
	}
	defer rows.Close()

	var result []models.RecentItem
	for rows.Next() {
		var item models.RecentItem
		var accessedAt int64
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.Path,
			&item.Size, &item.MimeType, &item.AccessType, &item.AccessCount, &accessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent item: %w", err)
		}
		item.AccessedAt = time.Unix(accessedAt, 0)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) RemoveAccess(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recent_items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove access record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Star(ctx context.Context, item models.Item, note string, at time.Time) error {
	query := `INSERT INTO starred_items (item_id, name, type, path, note, starred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			note = excluded.note,
			starred_at = excluded.starred_at
	`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.Name, string(item.Type), item.Path, note, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to star item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Unstar(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM starred_items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to unstar item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Starred(ctx context.Context) ([]models.StarredItem, error) {
	query := `SELECT item_id, name, type, path, note, starred_at FROM starred_items ORDER BY starred_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select starred items: %w", err)
	}
	defer rows.Close()

	var result []models.StarredItem
	for rows.Next() {
		var item models.StarredItem
		var starredAt int64
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.Path, &item.Note, &starredAt); err != nil {
			return nil, fmt.Errorf("failed to scan starred item: %w", err)
		}
		item.StarredAt = time.Unix(starredAt, 0)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) IsStarred(ctx context.Context, itemID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM starred_items WHERE item_id = ?`, itemID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check starred item: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recent_items`); err != nil {
			return fmt.Errorf("failed to clear recent items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM starred_items`); err != nil {
			return fmt.Errorf("failed to clear starred items: %w", err)
		}
		return nil
	})
}
