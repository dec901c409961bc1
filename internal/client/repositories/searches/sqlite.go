package searches

import (
	"context"
	"fmt"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, query string, at time.Time, keep int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recent_searches (query, searched_at) VALUES (?, ?)
		ON CONFLICT(query) DO UPDATE SET searched_at = excluded.searched_at
	`, query, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert search: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM recent_searches WHERE query NOT IN (
			SELECT query FROM recent_searches ORDER BY searched_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune searches: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT query FROM recent_searches ORDER BY searched_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select searches: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, query string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recent_searches WHERE query = ?`, query)
	if err != nil {
		return fmt.Errorf("failed to remove search: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recent_searches`)
	if err != nil {
		return fmt.Errorf("failed to clear searches: %w", err)
	}
	return nil
}
