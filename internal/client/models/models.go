// Package models defines client-side data models shared by the sortedstorage
// stores and the REST/WebSocket layers.
package models

import "time"

// ItemType distinguishes files from folders in listings.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// Item is a file or folder as returned by the storage API.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      ItemType  `json:"type"`
	Path      string    `json:"path"`
	ParentID  string    `json:"parentId,omitempty"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StorageQuota reports used vs available bytes for the account.
type StorageQuota struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// User is the authenticated account as returned by the auth API.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// AccessType classifies entries in the recent-items history.
type AccessType string

const (
	AccessView     AccessType = "view"
	AccessEdit     AccessType = "edit"
	AccessDownload AccessType = "download"
	AccessShare    AccessType = "share"
)

// RecentItem is an item from the local access history, annotated with how and
// how often it was last touched.
type RecentItem struct {
	Item
	AccessType  AccessType
	AccessCount int
	AccessedAt  time.Time
}

// StarredItem is a locally pinned item with an optional user note.
type StarredItem struct {
	Item
	Note      string
	StarredAt time.Time
}
