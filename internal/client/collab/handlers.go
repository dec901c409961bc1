package collab

import (
	"context"
	"encoding/json"
	"maps"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
)

// handleEvent dispatches an inbound envelope to its reducer. Reducers never
// re-emit a WebSocket message (no echo loops) and never notify for the local
// user's own echoed events.
func (s *Store) handleEvent(ctx context.Context, env models.Envelope) {
	isSelf := false
	if me := s.localIdentity(ctx); me != nil && me.ID == env.UserID {
		isSelf = true
	}

	switch env.Type {
	case models.EventUserJoined:
		s.handleUserJoined(env, isSelf)
	case models.EventUserLeft:
		s.handleUserLeft(env, isSelf)
	case models.EventPresenceUpdate:
		s.handlePresenceUpdate(env)
	case models.EventFileLocked:
		s.handleRemoteLock(ctx, env, isSelf)
	case models.EventFileUnlocked:
		s.handleRemoteUnlock(env)
	case models.EventUserTyping:
		s.handleRemoteTyping(ctx, env, isSelf)
	case models.EventUserStoppedTyping:
		s.handleRemoteStoppedTyping(env)
	case models.EventCursorMoved:
		s.handleRemoteCursor(env)
	case models.EventSelectionChanged:
		s.handleRemoteSelection(env)
	case models.EventFileAdded, models.EventFileUpdated, models.EventFileDeleted:
		s.handleFileActivity(env, isSelf)
	case models.EventNotification:
		s.handleServerNotification(env)
	default:
		s.log.Warn(ctx, "unhandled event", "type", env.Type)
	}
}

func (s *Store) eventTime(env models.Envelope) time.Time {
	if !env.Timestamp.IsZero() {
		return env.Timestamp
	}
	return s.now()
}

// touchUser refreshes a user's activity clock, restoring active status.
// Events for users we have never seen are ignored here; presence events are
// the only source of new roster entries.
func (s *Store) touchUser(userID string, at time.Time) {
	if userID == "" {
		return
	}
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		u, ok := users[userID]
		if !ok {
			return users
		}
		next := maps.Clone(users)
		u.LastActivity = at
		u.Status = StatusActive
		next[userID] = u
		return next
	})
}

func (s *Store) handleUserJoined(env models.Envelope, isSelf bool) {
	var p models.PresencePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	if p.ID == "" {
		p.ID = env.UserID
	}

	at := s.eventTime(env)
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		next := maps.Clone(users)
		next[p.ID] = ActiveUser{
			ID:           p.ID,
			Name:         p.Name,
			Email:        p.Email,
			Avatar:       p.Avatar,
			CurrentPath:  p.CurrentPath,
			LastActivity: at,
			Status:       StatusActive,
		}
		return next
	})

	if !isSelf && s.notify != nil {
		s.notify.Info(p.Name+" joined", "")
	}
}

func (s *Store) handleUserLeft(env models.Envelope, isSelf bool) {
	var p models.PresencePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	id := p.ID
	if id == "" {
		id = env.UserID
	}

	var name string
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		u, ok := users[id]
		if !ok {
			return users
		}
		name = u.Name
		next := maps.Clone(users)
		delete(next, id)
		return next
	})

	if !isSelf && s.notify != nil && name != "" {
		s.notify.Info(name+" left", "")
	}
}

// handlePresenceUpdate moves an existing user, or creates the entry when the
// join event was missed.
func (s *Store) handlePresenceUpdate(env models.Envelope) {
	var p models.PresencePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}
	if p.ID == "" {
		p.ID = env.UserID
	}

	at := s.eventTime(env)
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		next := maps.Clone(users)
		u, ok := next[p.ID]
		if !ok {
			u = ActiveUser{ID: p.ID, Name: p.Name, Email: p.Email}
		}
		u.CurrentPath = p.CurrentPath
		u.LastActivity = at
		u.Status = StatusActive
		next[p.ID] = u
		return next
	})
}

func (s *Store) handleRemoteLock(ctx context.Context, env models.Envelope, isSelf bool) {
	var p models.LockPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.FileID == "" {
		return
	}

	at := s.eventTime(env)
	s.locks.Update(func(locks map[string]FileLock) map[string]FileLock {
		next := maps.Clone(locks)
		next[p.FileID] = FileLock{
			UserID:    env.UserID,
			UserName:  p.UserName,
			FileID:    p.FileID,
			FileName:  p.FileName,
			Timestamp: at,
		}
		return next
	})
	s.touchUser(env.UserID, at)

	if !isSelf && s.notify != nil {
		s.notify.Info(p.UserName+" is editing "+p.FileName, "")
	}
}

func (s *Store) handleRemoteUnlock(env models.Envelope) {
	var p models.LockPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.FileID == "" {
		return
	}

	s.locks.Update(func(locks map[string]FileLock) map[string]FileLock {
		if _, ok := locks[p.FileID]; !ok {
			return locks
		}
		next := maps.Clone(locks)
		delete(next, p.FileID)
		return next
	})
	s.touchUser(env.UserID, s.eventTime(env))
}

// handleRemoteTyping records (or refreshes) a typing indicator and arms its
// expiry. An indicator for an unknown file is created, never an error.
func (s *Store) handleRemoteTyping(ctx context.Context, env models.Envelope, isSelf bool) {
	var p models.TypingPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.FileID == "" {
		return
	}
	if isSelf {
		// Our own echo: local intent already tracks this indicator.
		return
	}

	at := s.eventTime(env)
	s.typing.Update(func(m map[string]TypingIndicator) map[string]TypingIndicator {
		next := maps.Clone(m)
		next[p.FileID] = TypingIndicator{
			UserID:    env.UserID,
			UserName:  p.UserName,
			FileID:    p.FileID,
			FileName:  p.FileName,
			Timestamp: at,
		}
		return next
	})
	s.touchUser(env.UserID, at)
	s.armTypingExpiry(ctx, p.FileID)
}

func (s *Store) handleRemoteStoppedTyping(env models.Envelope) {
	var p models.TypingPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || p.FileID == "" {
		return
	}

	s.mu.Lock()
	if t, ok := s.typingTimers[p.FileID]; ok && s.localTyping != p.FileID {
		t.Stop()
		delete(s.typingTimers, p.FileID)
	}
	s.mu.Unlock()

	s.removeTyping(p.FileID)
	s.touchUser(env.UserID, s.eventTime(env))
}

func (s *Store) handleRemoteCursor(env models.Envelope) {
	var p models.CursorPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || env.UserID == "" {
		return
	}

	at := s.eventTime(env)
	s.cursors.Update(func(m map[string]CursorPosition) map[string]CursorPosition {
		next := maps.Clone(m)
		next[env.UserID] = CursorPosition{
			UserID:    env.UserID,
			UserName:  p.UserName,
			FileID:    p.FileID,
			Line:      p.Line,
			Column:    p.Column,
			Timestamp: at,
		}
		return next
	})
	s.touchUser(env.UserID, at)
}

func (s *Store) handleRemoteSelection(env models.Envelope) {
	var p models.SelectionPayload
	if err := json.Unmarshal(env.Data, &p); err != nil || env.UserID == "" {
		return
	}

	at := s.eventTime(env)
	s.selections.Update(func(m map[string]SelectionRange) map[string]SelectionRange {
		next := maps.Clone(m)
		next[env.UserID] = SelectionRange{
			UserID:    env.UserID,
			UserName:  p.UserName,
			FileID:    p.FileID,
			Start:     p.Start,
			End:       p.End,
			Timestamp: at,
		}
		return next
	})
	s.touchUser(env.UserID, at)
}

// handleFileActivity appends to the feed for added/updated events and
// surfaces a cross-user notification. Deletions notify without a feed entry;
// the feed tracks view/edit/upload/download only.
func (s *Store) handleFileActivity(env models.Envelope, isSelf bool) {
	var p models.FileEventPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}

	at := s.eventTime(env)
	s.touchUser(env.UserID, at)

	var verb string
	switch env.Type {
	case models.EventFileAdded:
		verb = "uploaded"
		s.appendActivity(FileActivity{
			FileID: p.FileID, FileName: p.FileName, Type: ActivityUpload,
			UserID: env.UserID, UserName: p.UserName, Timestamp: at,
		})
	case models.EventFileUpdated:
		verb = "updated"
		s.appendActivity(FileActivity{
			FileID: p.FileID, FileName: p.FileName, Type: ActivityEdit,
			UserID: env.UserID, UserName: p.UserName, Timestamp: at,
		})
	case models.EventFileDeleted:
		verb = "deleted"
	}

	if !isSelf && s.notify != nil && p.UserName != "" {
		s.notify.Info(p.UserName+" "+verb+" "+p.FileName, "")
	}
}

// handleServerNotification forwards a server-pushed notification to the
// notification center with its level mapped onto a local type.
func (s *Store) handleServerNotification(env models.Envelope) {
	if s.notify == nil {
		return
	}
	var p models.NotificationPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return
	}

	var t notify.Type
	switch p.Level {
	case "success":
		t = notify.TypeSuccess
	case "error":
		t = notify.TypeError
	case "warning":
		t = notify.TypeWarning
	default:
		t = notify.TypeInfo
	}
	s.notify.Show(notify.Options{Type: t, Title: p.Title, Message: p.Message})
}
