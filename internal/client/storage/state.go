// Package storage manages the client's view of the current folder: listing,
// selection, sort/filter/view-mode state, the upload queue, and the CRUD
// operations that reconcile local state against the REST storage API.
//
// Reconciliation strategy is deliberately asymmetric: uploads trigger an
// authoritative reload of the directory (server-assigned metadata must be
// reflected), while deletes/renames/moves mutate local state directly after
// confirmed server success (cheap to reflect, rarely conflicting). Keep it
// that way.
package storage

import (
	"context"
	"sync"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

type SortBy string

const (
	SortByName     SortBy = "name"
	SortBySize     SortBy = "size"
	SortByModified SortBy = "modified"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type ViewMode string

const (
	ViewModeList ViewMode = "list"
	ViewModeGrid ViewMode = "grid"
)

// Filters narrow the displayed listing client-side.
type Filters struct {
	Search string
	Type   models.ItemType // empty means both files and folders
}

// View is the published state of the current folder. Files and folders are
// replaced wholesale on each successful fetch; the selection is scoped to
// the current listing and cleared on navigation.
type View struct {
	Files       []models.Item
	Folders     []models.Item
	CurrentPath string
	Selected    map[string]bool
	SortBy      SortBy
	SortOrder   SortOrder
	ViewMode    ViewMode
	Filters     Filters
	Quota       *models.StorageQuota
	Loading     bool
	Error       string
}

// AccessRecorder receives access-history entries for the recent-items
// tracker. Failures are logged, never surfaced.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, item models.Item, access models.AccessType) error
}

// Store owns the storage view and the upload queue.
type Store struct {
	api    api.StorageAPI
	notify *notify.Center
	recent AccessRecorder
	log    logging.Logger

	view    *store.Store[View]
	uploads *store.Store[[]UploadItem]

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(storageAPI api.StorageAPI, center *notify.Center, recent AccessRecorder, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		api:    storageAPI,
		notify: center,
		recent: recent,
		log:    log,
		view: store.New(View{
			CurrentPath: "/",
			Selected:    map[string]bool{},
			SortBy:      SortByName,
			SortOrder:   SortAsc,
			ViewMode:    ViewModeList,
		}),
		uploads: store.New([]UploadItem{}),
		cancels: make(map[string]context.CancelFunc),
	}
}

func (s *Store) View() *store.Store[View] { return s.view }

func (s *Store) Uploads() *store.Store[[]UploadItem] { return s.uploads }

// SetSort updates the sort state; the next load applies it server-side.
func (s *Store) SetSort(by SortBy, order SortOrder) {
	s.view.Update(func(v View) View {
		v.SortBy = by
		v.SortOrder = order
		return v
	})
}

func (s *Store) SetViewMode(mode ViewMode) {
	s.view.Update(func(v View) View {
		v.ViewMode = mode
		return v
	})
}

func (s *Store) SetFilters(f Filters) {
	s.view.Update(func(v View) View {
		v.Filters = f
		return v
	})
}

// Items returns the current listing (folders then files) with client-side
// filters applied. The search store operates over this set.
func (s *Store) Items() []models.Item {
	v := s.view.Get()
	out := make([]models.Item, 0, len(v.Folders)+len(v.Files))
	for _, it := range v.Folders {
		if matchesFilters(it, v.Filters) {
			out = append(out, it)
		}
	}
	for _, it := range v.Files {
		if matchesFilters(it, v.Filters) {
			out = append(out, it)
		}
	}
	return out
}

func matchesFilters(it models.Item, f Filters) bool {
	if f.Type != "" && it.Type != f.Type {
		return false
	}
	if f.Search != "" && !containsFold(it.Name, f.Search) {
		return false
	}
	return true
}

// Select marks an item as selected within the current listing.
func (s *Store) Select(id string) {
	s.view.Update(func(v View) View {
		next := cloneSelection(v.Selected)
		next[id] = true
		v.Selected = next
		return v
	})
}

func (s *Store) Deselect(id string) {
	s.view.Update(func(v View) View {
		if !v.Selected[id] {
			return v
		}
		next := cloneSelection(v.Selected)
		delete(next, id)
		v.Selected = next
		return v
	})
}

func (s *Store) ClearSelection() {
	s.view.Update(func(v View) View {
		v.Selected = map[string]bool{}
		return v
	})
}

// SelectedIDs returns the selection as a slice, order unspecified.
func (s *Store) SelectedIDs() []string {
	sel := s.view.Get().Selected
	out := make([]string, 0, len(sel))
	for id := range sel {
		out = append(out, id)
	}
	return out
}

func cloneSelection(m map[string]bool) map[string]bool {
	next := make(map[string]bool, len(m))
	for k, v := range m {
		next[k] = v
	}
	return next
}
