package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// isFolderID reports whether the argument looks like a folder id rather
// than a path (ids are UUIDs, paths are not).
func isFolderID(s string) bool {
	return uuid.Validate(s) == nil
}

// fail records the error on the view, surfaces a notification titled after
// the failed action, and returns the error for the caller. No local state
// beyond the error string is touched.
func (s *Store) fail(ctx context.Context, action string, err error) error {
	s.log.Warn(ctx, action+" failed", "error", err.Error())
	s.view.Update(func(v View) View {
		v.Error = err.Error()
		return v
	})
	if s.notify != nil {
		s.notify.Error(action+" failed", err.Error())
	}
	return err
}

// LoadFiles fetches a listing by path or folder id and replaces the local
// files/folders wholesale. Loading is cleared unconditionally so a failed
// fetch cannot leave a stuck spinner; the selection is cleared because it is
// scoped to the previous listing.
func (s *Store) LoadFiles(ctx context.Context, pathOrID string) error {
	v := s.view.Get()
	opts := api.ListOptions{SortBy: string(v.SortBy), SortOrder: string(v.SortOrder)}
	if isFolderID(pathOrID) {
		opts.ParentID = pathOrID
	} else {
		if pathOrID == "" {
			pathOrID = "/"
		}
		opts.Path = pathOrID
	}

	s.view.Update(func(v View) View {
		v.Loading = true
		v.Error = ""
		return v
	})

	items, err := s.api.List(ctx, opts)

	if err != nil {
		s.view.Update(func(v View) View {
			v.Loading = false
			return v
		})
		return s.fail(ctx, "Loading files", err)
	}

	var files, folders []models.Item
	for _, it := range items {
		if it.Type == models.ItemTypeFolder {
			folders = append(folders, it)
		} else {
			files = append(files, it)
		}
	}

	s.view.Update(func(v View) View {
		v.Files = files
		v.Folders = folders
		v.CurrentPath = pathOrID
		v.Selected = map[string]bool{}
		v.Loading = false
		return v
	})
	return nil
}

// Refresh reloads the currently displayed listing.
func (s *Store) Refresh(ctx context.Context) error {
	return s.LoadFiles(ctx, s.view.Get().CurrentPath)
}

// DeleteItem deletes on the server first and only then removes the entry
// from the local listing and selection. On failure local state is untouched.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return s.fail(ctx, "Delete", err)
	}
	s.removeLocal([]string{id})
	if s.notify != nil {
		s.notify.Success("Deleted", "")
	}
	return nil
}

// DeleteItems deletes a batch on the server; local removal happens only
// after confirmed success, and never partially.
func (s *Store) DeleteItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.api.DeleteMultiple(ctx, ids); err != nil {
		return s.fail(ctx, "Delete", err)
	}
	s.removeLocal(ids)
	if s.notify != nil {
		s.notify.Success("Deleted", "")
	}
	return nil
}

func (s *Store) removeLocal(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.view.Update(func(v View) View {
		v.Files = without(v.Files, drop)
		v.Folders = without(v.Folders, drop)
		sel := cloneSelection(v.Selected)
		for id := range drop {
			delete(sel, id)
		}
		v.Selected = sel
		return v
	})
}

func without(items []models.Item, drop map[string]bool) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if !drop[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// CreateFolder creates on the server and appends the returned folder.
func (s *Store) CreateFolder(ctx context.Context, name, path, parentID string) error {
	if path == "" {
		path = s.view.Get().CurrentPath
	}
	folder, err := s.api.CreateFolder(ctx, name, path, parentID)
	if err != nil {
		return s.fail(ctx, "Create folder", err)
	}
	s.view.Update(func(v View) View {
		v.Folders = append(append([]models.Item{}, v.Folders...), *folder)
		return v
	})
	if s.notify != nil {
		s.notify.Success("Folder created", name)
	}
	return nil
}

// RenameItem renames on the server and replaces the matching local entry
// with the server-returned object, branching on the returned item's type.
func (s *Store) RenameItem(ctx context.Context, id, newName string) error {
	item, err := s.api.Rename(ctx, id, newName)
	if err != nil {
		return s.fail(ctx, "Rename", err)
	}
	s.view.Update(func(v View) View {
		if item.Type == models.ItemTypeFolder {
			v.Folders = replaceByID(v.Folders, *item)
		} else {
			v.Files = replaceByID(v.Files, *item)
		}
		return v
	})
	return nil
}

func replaceByID(items []models.Item, item models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == item.ID {
			out[i] = item
			return out
		}
	}
	return out
}

// MoveItems moves on the server, then removes the ids from the current view
// unconditionally: moved items have left the displayed folder.
func (s *Store) MoveItems(ctx context.Context, ids []string, targetPath string) error {
	if err := s.api.MoveMultiple(ctx, ids, targetPath); err != nil {
		return s.fail(ctx, "Move", err)
	}
	s.removeLocal(ids)
	return nil
}

// CopyItems copies on the server. The returned copies are added locally only
// when the target is the currently displayed path; copies made elsewhere
// belong to a folder we are not looking at.
func (s *Store) CopyItems(ctx context.Context, ids []string, targetPath string) error {
	copies, err := s.api.CopyMultiple(ctx, ids, targetPath)
	if err != nil {
		return s.fail(ctx, "Copy", err)
	}
	if targetPath != s.view.Get().CurrentPath {
		return nil
	}
	s.view.Update(func(v View) View {
		files := append([]models.Item{}, v.Files...)
		folders := append([]models.Item{}, v.Folders...)
		for _, c := range copies {
			if c.Type == models.ItemTypeFolder {
				folders = append(folders, c)
			} else {
				files = append(files, c)
			}
		}
		v.Files = files
		v.Folders = folders
		return v
	})
	return nil
}

// Download streams a file into w with progress reporting and records a
// download access for the recent-items tracker.
func (s *Store) Download(ctx context.Context, item models.Item, w io.Writer, onProgress func(int)) error {
	if err := s.api.Download(ctx, item.ID, w, onProgress); err != nil {
		return s.fail(ctx, "Download", err)
	}
	if s.recent != nil {
		if err := s.recent.RecordAccess(ctx, item, models.AccessDownload); err != nil {
			s.log.Warn(ctx, "recording access failed", "error", err.Error())
		}
	}
	return nil
}

// LoadQuota refreshes the account quota on the view.
func (s *Store) LoadQuota(ctx context.Context) error {
	quota, err := s.api.Quota(ctx)
	if err != nil {
		return s.fail(ctx, "Loading quota", err)
	}
	s.view.Update(func(v View) View {
		v.Quota = quota
		return v
	})
	return nil
}
