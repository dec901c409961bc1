package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/storage"
)

// resolveItem finds an entry in the current listing by exact name or id.
func (a *App) resolveItem(name string) (models.Item, bool) {
	v := a.storage.View().Get()
	for _, list := range [][]models.Item{v.Folders, v.Files} {
		for _, it := range list {
			if it.Name == name || it.ID == name {
				return it, true
			}
		}
	}
	return models.Item{}, false
}

func (a *App) resolveItems(names []string) ([]string, bool) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		it, ok := a.resolveItem(name)
		if !ok {
			printlnFn("Not found:", name)
			return nil, false
		}
		ids = append(ids, it.ID)
	}
	return ids, true
}

// List prints the current listing, folders first.
func (a *App) List(ctx context.Context) error {
	if err := a.storage.Refresh(ctx); err != nil {
		return err
	}
	v := a.storage.View().Get()
	for _, f := range v.Folders {
		printlnFn(fmt.Sprintf("  %-40s <dir>", f.Name))
	}
	for _, f := range v.Files {
		printlnFn(fmt.Sprintf("  %-40s %8d", f.Name, f.Size))
	}
	if len(v.Folders)+len(v.Files) == 0 {
		printlnFn("  (empty)")
	}
	return nil
}

// ChangeDir loads the listing for a path or folder name and broadcasts the
// navigation to other users.
func (a *App) ChangeDir(ctx context.Context, path string) error {
	target := path
	if it, ok := a.resolveItem(path); ok && it.Type == models.ItemTypeFolder {
		target = it.ID
	}
	if err := a.storage.LoadFiles(ctx, target); err != nil {
		return err
	}
	a.collab.UpdatePath(ctx, a.storage.View().Get().CurrentPath)
	return nil
}

// Upload enqueues local files for upload into the current folder.
func (a *App) Upload(ctx context.Context, paths []string) error {
	reqs := make([]storage.UploadRequest, 0, len(paths))
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}()

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			printlnFn("Cannot open:", p)
			return err
		}
		closers = append(closers, f)
		info, err := f.Stat()
		if err != nil {
			return err
		}
		reqs = append(reqs, storage.UploadRequest{
			Name:    filepath.Base(p),
			Content: f,
			Size:    info.Size(),
		})
	}

	a.storage.UploadFiles(ctx, reqs, "")
	return nil
}

// Download streams a file from the server into the working directory.
func (a *App) Download(ctx context.Context, name string) error {
	it, ok := a.resolveItem(name)
	if !ok {
		printlnFn("Not found:", name)
		return nil
	}
	out, err := os.Create(it.Name)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := a.storage.Download(ctx, it, out, nil); err != nil {
		return err
	}
	printlnFn("Downloaded", it.Name)
	return nil
}

func (a *App) MakeDir(ctx context.Context, name string) error {
	return a.storage.CreateFolder(ctx, name, "", "")
}

func (a *App) Remove(ctx context.Context, names []string) error {
	ids, ok := a.resolveItems(names)
	if !ok {
		return nil
	}
	return a.storage.DeleteItems(ctx, ids)
}

func (a *App) Move(ctx context.Context, targetPath string, names []string) error {
	ids, ok := a.resolveItems(names)
	if !ok {
		return nil
	}
	return a.storage.MoveItems(ctx, ids, targetPath)
}

func (a *App) Copy(ctx context.Context, targetPath string, names []string) error {
	ids, ok := a.resolveItems(names)
	if !ok {
		return nil
	}
	return a.storage.CopyItems(ctx, ids, targetPath)
}

func (a *App) Rename(ctx context.Context, name, newName string) error {
	it, ok := a.resolveItem(name)
	if !ok {
		printlnFn("Not found:", name)
		return nil
	}
	return a.storage.RenameItem(ctx, it.ID, newName)
}

// Uploads prints the upload queue with per-item progress.
func (a *App) Uploads(ctx context.Context) error {
	queue := a.storage.Uploads().Get()
	if len(queue) == 0 {
		printlnFn("  (no uploads)")
		return nil
	}
	for _, it := range queue {
		line := fmt.Sprintf("  %-40s %-10s %3d%%", it.Name, it.Status, it.Progress)
		if it.Error != "" {
			line += "  " + it.Error
		}
		printlnFn(line)
	}
	return nil
}

// Quota prints used vs total bytes for the account.
func (a *App) Quota(ctx context.Context) error {
	if err := a.storage.LoadQuota(ctx); err != nil {
		return err
	}
	q := a.storage.View().Get().Quota
	if q == nil {
		return nil
	}
	printlnFn(fmt.Sprintf("Used %d of %d bytes", q.Used, q.Total))
	return nil
}
