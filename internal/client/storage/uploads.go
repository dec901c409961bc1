package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/common"
)

// UploadStatus is an upload queue item's lifecycle state.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadError     UploadStatus = "error"
)

// UploadItem is one entry in the upload queue. Progress is monotonically
// non-decreasing while uploading; completed/error are terminal.
type UploadItem struct {
	ID       string
	Name     string
	Path     string
	ParentID string
	Progress int
	Status   UploadStatus
	Error    string
	Uploaded *models.Item
}

// UploadRequest is the caller-supplied content for one queued file.
type UploadRequest struct {
	Name    string
	Content io.Reader
	Size    int64
}

// UploadFiles enqueues every request and processes the queue sequentially in
// array order. A failing item does not abort the batch; each failure gets
// its own error notification naming the file. After the batch settles the
// current directory is reloaded — the server listing is authoritative for
// uploads, no optimistic insertion happens.
func (s *Store) UploadFiles(ctx context.Context, reqs []UploadRequest, parentID string) []string {
	if len(reqs) == 0 {
		return nil
	}
	path := s.view.Get().CurrentPath

	ids := make([]string, 0, len(reqs))
	items := make([]UploadItem, 0, len(reqs))
	for _, req := range reqs {
		item := UploadItem{
			ID:       uuid.NewString(),
			Name:     req.Name,
			Path:     path,
			ParentID: parentID,
			Status:   UploadPending,
		}
		ids = append(ids, item.ID)
		items = append(items, item)
	}
	s.uploads.Update(func(queue []UploadItem) []UploadItem {
		return append(append([]UploadItem{}, queue...), items...)
	})

	var progressID string
	if s.notify != nil {
		progressID = s.notify.Progress("Uploading files", 0, int64(len(reqs)), "")
	}

	for i, req := range reqs {
		s.uploadOne(ctx, ids[i], req, path, parentID)
		if s.notify != nil {
			s.notify.UpdateProgress(progressID, int64(i+1), int64(len(reqs)), req.Name)
		}
	}

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "post-upload reload failed", "error", err.Error())
	}
	return ids
}

func (s *Store) uploadOne(ctx context.Context, id string, req UploadRequest, path, parentID string) {
	// A cancel that lands while the item is still pending makes it terminal;
	// skip the attempt so the file never reaches the server.
	switch s.uploadStatus(id) {
	case UploadCompleted, UploadError:
		return
	}

	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}()

	s.setStatus(id, UploadUploading, nil)

	uploaded, err := s.api.Upload(itemCtx, api.UploadRequest{
		Name:     req.Name,
		Path:     path,
		ParentID: parentID,
		Content:  req.Content,
		Size:     req.Size,
		OnProgress: func(pct int) {
			s.setProgress(id, pct)
		},
	})

	if err != nil {
		if itemCtx.Err() != nil {
			err = common.ErrUploadCancelled
		}
		s.setStatus(id, UploadError, err)
		if s.notify != nil && !errors.Is(err, common.ErrUploadCancelled) {
			s.notify.Error("Upload failed", fmt.Sprintf("%s: %s", req.Name, err.Error()))
		}
		return
	}

	s.setUploaded(id, uploaded)
	if s.recent != nil && uploaded != nil {
		if err := s.recent.RecordAccess(ctx, *uploaded, models.AccessEdit); err != nil {
			s.log.Warn(ctx, "recording access failed", "error", err.Error())
		}
	}
}

// uploadStatus returns the queue item's current status, or "" when the item
// is not in the queue.
func (s *Store) uploadStatus(id string) UploadStatus {
	for _, it := range s.uploads.Get() {
		if it.ID == id {
			return it.Status
		}
	}
	return ""
}

// CancelUpload aborts an in-flight (or pending) upload. The item moves to a
// terminal error state; late progress or completion callbacks from the
// aborted attempt cannot resurrect it.
func (s *Store) CancelUpload(id string) {
	s.mu.Lock()
	cancel := s.cancels[id]
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.setStatus(id, UploadError, common.ErrUploadCancelled)
}

// ClearFinishedUploads prunes completed and errored items from the queue.
func (s *Store) ClearFinishedUploads() {
	s.uploads.Update(func(queue []UploadItem) []UploadItem {
		kept := make([]UploadItem, 0, len(queue))
		for _, it := range queue {
			if it.Status == UploadPending || it.Status == UploadUploading {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

// setProgress raises an item's progress. Regressions and updates to items no
// longer uploading are dropped, which both keeps progress monotonic and
// guards against late callbacks from cancelled attempts.
func (s *Store) setProgress(id string, pct int) {
	if pct < 0 {
		return
	}
	if pct > 100 {
		pct = 100
	}
	s.uploads.Update(func(queue []UploadItem) []UploadItem {
		next := append([]UploadItem{}, queue...)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			if next[i].Status != UploadUploading || pct <= next[i].Progress {
				return queue
			}
			next[i].Progress = pct
			return next
		}
		return queue
	})
}

// setStatus transitions an item unless it is already terminal.
func (s *Store) setStatus(id string, status UploadStatus, err error) {
	s.uploads.Update(func(queue []UploadItem) []UploadItem {
		next := append([]UploadItem{}, queue...)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			if next[i].Status == UploadCompleted || next[i].Status == UploadError {
				return queue
			}
			next[i].Status = status
			if err != nil {
				next[i].Error = err.Error()
			}
			return next
		}
		return queue
	})
}

func (s *Store) setUploaded(id string, item *models.Item) {
	s.uploads.Update(func(queue []UploadItem) []UploadItem {
		next := append([]UploadItem{}, queue...)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			if next[i].Status == UploadCompleted || next[i].Status == UploadError {
				return queue
			}
			next[i].Status = UploadCompleted
			next[i].Progress = 100
			next[i].Uploaded = item
			return next
		}
		return queue
	})
}
