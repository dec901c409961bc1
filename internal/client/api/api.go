// Package api implements the sortedstorage REST contract: storage CRUD,
// uploads/downloads with progress, quota, and the auth endpoints.
package api

import (
	"context"
	"io"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
)

// ListOptions selects a directory listing either by path or by folder id.
type ListOptions struct {
	Path      string
	ParentID  string
	SortBy    string
	SortOrder string
}

// UploadRequest describes a single file upload. OnProgress, when set, is
// called with a percentage in [0,100] as the body is consumed.
type UploadRequest struct {
	Name       string
	Path       string
	ParentID   string
	Content    io.Reader
	Size       int64
	OnProgress func(percent int)
}

// StorageAPI is the REST storage surface consumed by the storage store.
type StorageAPI interface {
	List(ctx context.Context, opts ListOptions) ([]models.Item, error)
	Upload(ctx context.Context, req UploadRequest) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	DeleteMultiple(ctx context.Context, ids []string) error
	CreateFolder(ctx context.Context, name, path, parentID string) (*models.Item, error)
	Rename(ctx context.Context, id, name string) (*models.Item, error)
	MoveMultiple(ctx context.Context, ids []string, targetPath string) error
	CopyMultiple(ctx context.Context, ids []string, targetPath string) ([]models.Item, error)
	Download(ctx context.Context, id string, w io.Writer, onProgress func(percent int)) error
	Quota(ctx context.Context) (*models.StorageQuota, error)
}

// AuthAPI is the auth surface. Login and Register return the user together
// with a bearer token; the caller is responsible for persisting the token.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Register(ctx context.Context, name, email, password string) (*models.User, string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}
