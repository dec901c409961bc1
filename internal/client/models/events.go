package models

import (
	"encoding/json"
	"time"
)

// Event types carried over the WebSocket connection. The envelope shape is
// fixed by the backend: {type, data, userId, timestamp}.
const (
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventFileAdded         = "file_added"
	EventFileUpdated       = "file_updated"
	EventFileDeleted       = "file_deleted"
	EventNotification      = "notification"
	EventPresenceUpdate    = "presence_update"
	EventFileLocked        = "file_locked"
	EventFileUnlocked      = "file_unlocked"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventCursorMoved       = "cursor_moved"
	EventSelectionChanged  = "selection_changed"
)

// Envelope is a typed WebSocket message.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	UserID    string          `json:"userId"`
	Timestamp time.Time       `json:"timestamp"`
}

// PresencePayload announces a user and their current location.
type PresencePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar,omitempty"`
	CurrentPath string `json:"currentPath"`
}

// LockPayload marks a file as advisorily locked or unlocked.
type LockPayload struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	UserName string `json:"userName"`
}

// TypingPayload signals that a user is typing in a file.
type TypingPayload struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	UserName string `json:"userName"`
}

// CursorPayload broadcasts a cursor position within a file (best effort).
type CursorPayload struct {
	FileID   string `json:"fileId"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	UserName string `json:"userName"`
}

// SelectionPayload broadcasts a selection range within a file (best effort).
type SelectionPayload struct {
	FileID   string `json:"fileId"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	UserName string `json:"userName"`
}

// FileEventPayload describes a file-level change (added/updated/deleted).
type FileEventPayload struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	UserName string `json:"userName"`
}

// NotificationPayload is a server-pushed notification.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
}
