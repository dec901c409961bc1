package searches

import (
	"context"
	"time"
)

// Repository persists the recent-search list. The list is deduplicated by
// query text and capped; adding an existing query refreshes its position.
type Repository interface {
	// Add upserts a query and prunes entries beyond keep, oldest first.
	Add(ctx context.Context, query string, at time.Time, keep int) error

	// Recent returns up to limit queries, most recent first.
	Recent(ctx context.Context, limit int) ([]string, error)

	// Remove drops a single query; unknown queries are a no-op.
	Remove(ctx context.Context, query string) error

	// Clear empties the list.
	Clear(ctx context.Context) error
}
