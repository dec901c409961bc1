// Package recent tracks recently accessed and starred items. History lives in
// the local database so it survives restarts; the tracker publishes both
// lists as observable stores for the UI.
package recent

import (
	"context"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/history"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// DefaultLimit bounds how many history entries are published.
const DefaultLimit = 20

type Tracker struct {
	repo  history.Repository
	log   logging.Logger
	limit int
	now   func() time.Time

	recent  *store.Store[[]models.RecentItem]
	starred *store.Store[[]models.StarredItem]
}

func New(repo history.Repository, log logging.Logger) *Tracker {
	if log == nil {
		log = logging.Nop()
	}
	return &Tracker{
		repo:    repo,
		log:     log,
		limit:   DefaultLimit,
		now:     time.Now,
		recent:  store.New([]models.RecentItem{}),
		starred: store.New([]models.StarredItem{}),
	}
}

func (t *Tracker) Recent() *store.Store[[]models.RecentItem] { return t.recent }

func (t *Tracker) Starred() *store.Store[[]models.StarredItem] { return t.starred }

// Load populates both stores from the database.
func (t *Tracker) Load(ctx context.Context) error {
	if err := t.refreshRecent(ctx); err != nil {
		return err
	}
	return t.refreshStarred(ctx)
}

// RecordAccess upserts a history entry and republishes the recent list.
// Repeated accesses to the same item bump its counter instead of adding rows.
func (t *Tracker) RecordAccess(ctx context.Context, item models.Item, access models.AccessType) error {
	if err := t.repo.RecordAccess(ctx, item, access, t.now()); err != nil {
		return err
	}
	return t.refreshRecent(ctx)
}

// RemoveAccess drops an item from the history.
func (t *Tracker) RemoveAccess(ctx context.Context, itemID string) error {
	if err := t.repo.RemoveAccess(ctx, itemID); err != nil {
		return err
	}
	return t.refreshRecent(ctx)
}

// Star pins an item with an optional user note. Starring again replaces the
// note.
func (t *Tracker) Star(ctx context.Context, item models.Item, note string) error {
	if err := t.repo.Star(ctx, item, note, t.now()); err != nil {
		return err
	}
	return t.refreshStarred(ctx)
}

// Unstar unpins an item; unknown ids are a no-op.
func (t *Tracker) Unstar(ctx context.Context, itemID string) error {
	if err := t.repo.Unstar(ctx, itemID); err != nil {
		return err
	}
	return t.refreshStarred(ctx)
}

// ToggleStar stars the item if unpinned and unpins it otherwise, returning
// the new state. The note only applies when the toggle pins the item.
func (t *Tracker) ToggleStar(ctx context.Context, item models.Item, note string) (bool, error) {
	starred, err := t.repo.IsStarred(ctx, item.ID)
	if err != nil {
		return false, err
	}
	if starred {
		return false, t.Unstar(ctx, item.ID)
	}
	return true, t.Star(ctx, item, note)
}

func (t *Tracker) IsStarred(ctx context.Context, itemID string) (bool, error) {
	return t.repo.IsStarred(ctx, itemID)
}

// ClearHistory empties the history and the starred set.
func (t *Tracker) ClearHistory(ctx context.Context) error {
	if err := t.repo.Clear(ctx); err != nil {
		return err
	}
	return t.Load(ctx)
}

func (t *Tracker) refreshRecent(ctx context.Context) error {
	items, err := t.repo.Recent(ctx, t.limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.RecentItem{}
	}
	t.recent.Set(items)
	return nil
}

func (t *Tracker) refreshStarred(ctx context.Context) error {
	items, err := t.repo.Starred(ctx)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.StarredItem{}
	}
	t.starred.Set(items)
	return nil
}
