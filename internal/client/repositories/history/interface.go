package history

import (
	"context"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
)

// Repository persists the local access history and starred items. Access
// records are upserted by item id; repeated accesses bump the counter and
// refresh the timestamp rather than adding rows.
type Repository interface {
	// RecordAccess upserts an access-history row for the item.
	RecordAccess(ctx context.Context, item models.Item, access models.AccessType, at time.Time) error

	// Recent returns up to limit history entries, most recent first.
	Recent(ctx context.Context, limit int) ([]models.RecentItem, error)

	// RemoveAccess drops an item from the history.
	RemoveAccess(ctx context.Context, itemID string) error

	// Star pins an item with an optional user note. Starring twice
	// refreshes the note and the timestamp.
	Star(ctx context.Context, item models.Item, note string, at time.Time) error

	// Unstar unpins an item; unknown ids are a no-op.
	Unstar(ctx context.Context, itemID string) error

	// Starred returns all pinned items, most recently starred first.
	Starred(ctx context.Context) ([]models.StarredItem, error)

	// IsStarred reports whether the item is pinned.
	IsStarred(ctx context.Context, itemID string) (bool, error)

	// Clear empties both the history and the starred set.
	Clear(ctx context.Context) error
}
