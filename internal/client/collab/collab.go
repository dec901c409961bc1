// Package collab maintains a best-effort, eventually-reconciled view of the
// other connected users: presence, advisory file locks, typing indicators,
// cursors/selections, and a bounded activity feed. State is derived from
// inbound WebSocket events and local intent calls; locks are informational
// only — nothing here enforces mutual exclusion.
package collab

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/identity"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/transport"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// UserStatus is the decayed presence state of a collaborator.
type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusIdle   UserStatus = "idle"
	StatusAway   UserStatus = "away"
)

// ActiveUser is a collaborator currently known to be online.
type ActiveUser struct {
	ID           string
	Name         string
	Email        string
	Avatar       string
	CurrentPath  string
	LastActivity time.Time
	Status       UserStatus
}

// FileLock is the advisory "being edited" marker for a file. Collisions are
// possible; the UI decides what to do with them.
type FileLock struct {
	UserID    string
	UserName  string
	FileID    string
	FileName  string
	Timestamp time.Time
}

// TypingIndicator marks that someone is typing in a file right now.
type TypingIndicator struct {
	UserID    string
	UserName  string
	FileID    string
	FileName  string
	Timestamp time.Time
}

// ActivityType classifies activity feed entries.
type ActivityType string

const (
	ActivityView     ActivityType = "view"
	ActivityEdit     ActivityType = "edit"
	ActivityUpload   ActivityType = "upload"
	ActivityDownload ActivityType = "download"
)

// FileActivity is an immutable entry in the bounded activity feed.
type FileActivity struct {
	FileID    string
	FileName  string
	Type      ActivityType
	UserID    string
	UserName  string
	Timestamp time.Time
}

// CursorPosition is a best-effort remote cursor, keyed by user.
type CursorPosition struct {
	UserID    string
	UserName  string
	FileID    string
	Line      int
	Column    int
	Timestamp time.Time
}

// SelectionRange is a best-effort remote selection, keyed by user.
type SelectionRange struct {
	UserID    string
	UserName  string
	FileID    string
	Start     int
	End       int
	Timestamp time.Time
}

// Stats summarizes the roster for status displays.
type Stats struct {
	ActiveUsers int
	LockedFiles int
}

// maxActivities bounds the activity feed; oldest entries are evicted first.
const maxActivities = 100

// Config holds the decay and debounce intervals. The sweep runs on a fixed
// interval and decides per user from elapsed time at sweep time, so there is
// no per-user timer.
type Config struct {
	IdleAfter     time.Duration
	EvictAfter    time.Duration
	SweepInterval time.Duration
	TypingExpiry  time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleAfter:     60 * time.Second,
		EvictAfter:    300 * time.Second,
		SweepInterval: 30 * time.Second,
		TypingExpiry:  3 * time.Second,
	}
}

// Store is the collaboration state store. Construct with New, wire it with
// Start, and release timers/subscriptions with Close.
type Store struct {
	transport transport.Transport
	identity  identity.Provider
	notify    *notify.Center
	log       logging.Logger
	cfg       Config

	users      *store.Store[map[string]ActiveUser]
	locks      *store.Store[map[string]FileLock]
	typing     *store.Store[map[string]TypingIndicator]
	cursors    *store.Store[map[string]CursorPosition]
	selections *store.Store[map[string]SelectionRange]
	activities *store.Store[[]FileActivity]

	mu           sync.Mutex
	typingTimers map[string]*time.Timer
	localTyping  string // fileID the local user is currently typing in
	currentPath  string

	// now is a test seam for the sweep clock.
	now func() time.Time

	unsubEvents    func()
	unsubConnected func()
	sweepStop      chan struct{}
	sweepDone      chan struct{}
}

func New(tr transport.Transport, idp identity.Provider, center *notify.Center, log logging.Logger, cfg Config) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		transport:    tr,
		identity:     idp,
		notify:       center,
		log:          log,
		cfg:          cfg,
		users:        store.New(map[string]ActiveUser{}),
		locks:        store.New(map[string]FileLock{}),
		typing:       store.New(map[string]TypingIndicator{}),
		cursors:      store.New(map[string]CursorPosition{}),
		selections:   store.New(map[string]SelectionRange{}),
		activities:   store.New([]FileActivity{}),
		typingTimers: make(map[string]*time.Timer),
		now:          time.Now,
	}
}

// Observable state accessors.

func (s *Store) ActiveUsers() *store.Store[map[string]ActiveUser] { return s.users }

func (s *Store) FileLocks() *store.Store[map[string]FileLock] { return s.locks }

func (s *Store) TypingIndicators() *store.Store[map[string]TypingIndicator] { return s.typing }

func (s *Store) Cursors() *store.Store[map[string]CursorPosition] { return s.cursors }

func (s *Store) Selections() *store.Store[map[string]SelectionRange] { return s.selections }

func (s *Store) Activities() *store.Store[[]FileActivity] { return s.activities }

// Start subscribes to the transport and launches the idle-decay sweep.
// Connection loss clears all derived state; a successful reconnect
// re-announces presence for the last known path.
func (s *Store) Start(ctx context.Context) {
	s.unsubEvents = s.transport.Subscribe(func(env models.Envelope) {
		s.handleEvent(ctx, env)
	})

	first := true
	wasConnected := false
	s.unsubConnected = s.transport.Connected().Subscribe(func(connected bool) {
		if first {
			first = false
			wasConnected = connected
			return
		}
		switch {
		case wasConnected && !connected:
			s.HandleDisconnect()
		case !wasConnected && connected:
			s.HandleReconnect(ctx)
		}
		wasConnected = connected
	})

	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})
	go s.sweepLoop()
}

// Close releases subscriptions and timers. The store keeps its last state.
func (s *Store) Close() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	if s.unsubConnected != nil {
		s.unsubConnected()
	}
	if s.sweepStop != nil {
		close(s.sweepStop)
		<-s.sweepDone
	}
	s.mu.Lock()
	for id, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, id)
	}
	s.mu.Unlock()
}

func (s *Store) sweepLoop() {
	defer close(s.sweepDone)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.sweepStop:
			return
		}
	}
}

// sweep demotes users idle for IdleAfter and evicts users silent for
// EvictAfter, based on elapsed time at sweep time.
func (s *Store) sweep() {
	now := s.now()
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		next := maps.Clone(users)
		for id, u := range next {
			elapsed := now.Sub(u.LastActivity)
			switch {
			case elapsed >= s.cfg.EvictAfter:
				delete(next, id)
			case elapsed >= s.cfg.IdleAfter && u.Status == StatusActive:
				u.Status = StatusIdle
				next[id] = u
			}
		}
		return next
	})
}

// localIdentity resolves the signed-in user, or nil when absent. Absence is
// not an error: presence intents are best-effort no-ops without identity.
func (s *Store) localIdentity(ctx context.Context) *identity.Identity {
	id, err := s.identity.Current(ctx)
	if err != nil {
		return nil
	}
	return id
}

// AnnouncePresence broadcasts the local user and their current path.
func (s *Store) AnnouncePresence(ctx context.Context, path string) {
	me := s.localIdentity(ctx)
	if me == nil {
		return
	}

	s.mu.Lock()
	s.currentPath = path
	s.mu.Unlock()

	now := s.now()
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		next := maps.Clone(users)
		next[me.ID] = ActiveUser{
			ID:           me.ID,
			Name:         me.Name,
			Email:        me.Email,
			CurrentPath:  path,
			LastActivity: now,
			Status:       StatusActive,
		}
		return next
	})

	payload := models.PresencePayload{ID: me.ID, Name: me.Name, Email: me.Email, CurrentPath: path}
	if err := s.transport.Send(models.EventUserJoined, payload); err != nil {
		s.log.Warn(ctx, "presence announce failed", "error", err.Error())
	}
}

// UpdatePath moves the local user to a new path and re-broadcasts presence.
// This is how navigation becomes visible to collaborators.
func (s *Store) UpdatePath(ctx context.Context, path string) {
	me := s.localIdentity(ctx)
	if me == nil {
		return
	}

	s.mu.Lock()
	s.currentPath = path
	s.mu.Unlock()

	now := s.now()
	s.users.Update(func(users map[string]ActiveUser) map[string]ActiveUser {
		u, ok := users[me.ID]
		if !ok {
			return users
		}
		next := maps.Clone(users)
		u.CurrentPath = path
		u.LastActivity = now
		u.Status = StatusActive
		next[me.ID] = u
		return next
	})

	payload := models.PresencePayload{ID: me.ID, Name: me.Name, Email: me.Email, CurrentPath: path}
	if err := s.transport.Send(models.EventPresenceUpdate, payload); err != nil {
		s.log.Warn(ctx, "presence update failed", "error", err.Error())
	}
}

// LockFile optimistically records an advisory lock and broadcasts it. The
// local entry is provisional; a conflicting remote lock event wins.
func (s *Store) LockFile(ctx context.Context, fileID, fileName string) {
	me := s.localIdentity(ctx)
	if me == nil {
		return
	}

	lock := FileLock{UserID: me.ID, UserName: me.Name, FileID: fileID, FileName: fileName, Timestamp: s.now()}
	s.locks.Update(func(locks map[string]FileLock) map[string]FileLock {
		next := maps.Clone(locks)
		next[fileID] = lock
		return next
	})

	payload := models.LockPayload{FileID: fileID, FileName: fileName, UserName: me.Name}
	if err := s.transport.Send(models.EventFileLocked, payload); err != nil {
		s.log.Warn(ctx, "lock broadcast failed", "file", fileID, "error", err.Error())
	}
}

// UnlockFile removes the advisory lock and broadcasts the release.
func (s *Store) UnlockFile(ctx context.Context, fileID string) {
	me := s.localIdentity(ctx)
	if me == nil {
		return
	}

	s.locks.Update(func(locks map[string]FileLock) map[string]FileLock {
		if _, ok := locks[fileID]; !ok {
			return locks
		}
		next := maps.Clone(locks)
		delete(next, fileID)
		return next
	})

	payload := models.LockPayload{FileID: fileID, UserName: me.Name}
	if err := s.transport.Send(models.EventFileUnlocked, payload); err != nil {
		s.log.Warn(ctx, "unlock broadcast failed", "file", fileID, "error", err.Error())
	}
}

// IsFileLocked reports whether an advisory lock exists for the file.
func (s *Store) IsFileLocked(fileID string) bool {
	_, ok := s.locks.Get()[fileID]
	return ok
}

// StartTyping records the local typing indicator, broadcasts it, and arms
// (or re-arms) the auto-stop timeout. Repeated calls for the same file reset
// the timer instead of stacking new ones.
func (s *Store) StartTyping(ctx context.Context, fileID, fileName string) {
	me := s.localIdentity(ctx)
	if me == nil {
		return
	}

	ind := TypingIndicator{UserID: me.ID, UserName: me.Name, FileID: fileID, FileName: fileName, Timestamp: s.now()}
	s.typing.Update(func(m map[string]TypingIndicator) map[string]TypingIndicator {
		next := maps.Clone(m)
		next[fileID] = ind
		return next
	})

	s.mu.Lock()
	s.localTyping = fileID
	s.mu.Unlock()

	payload := models.TypingPayload{FileID: fileID, FileName: fileName, UserName: me.Name}
	if err := s.transport.Send(models.EventUserTyping, payload); err != nil {
		s.log.Warn(ctx, "typing broadcast failed", "file", fileID, "error", err.Error())
	}

	s.armTypingExpiry(ctx, fileID)
}

// StopTyping clears the local typing indicator and broadcasts the stop.
func (s *Store) StopTyping(ctx context.Context) {
	s.mu.Lock()
	fileID := s.localTyping
	s.localTyping = ""
	if t, ok := s.typingTimers[fileID]; ok {
		t.Stop()
		delete(s.typingTimers, fileID)
	}
	s.mu.Unlock()

	if fileID == "" {
		return
	}

	s.removeTyping(fileID)
	if err := s.transport.Send(models.EventUserStoppedTyping, models.TypingPayload{FileID: fileID}); err != nil {
		s.log.Warn(ctx, "stop-typing broadcast failed", "file", fileID, "error", err.Error())
	}
}

// armTypingExpiry resets the expiry timer for a file's typing indicator.
func (s *Store) armTypingExpiry(ctx context.Context, fileID string) {
	s.mu.Lock()
	if t, ok := s.typingTimers[fileID]; ok {
		t.Stop()
	}
	s.typingTimers[fileID] = time.AfterFunc(s.cfg.TypingExpiry, func() {
		s.mu.Lock()
		delete(s.typingTimers, fileID)
		isLocal := s.localTyping == fileID
		if isLocal {
			s.localTyping = ""
		}
		s.mu.Unlock()

		s.removeTyping(fileID)
		if isLocal {
			if err := s.transport.Send(models.EventUserStoppedTyping, models.TypingPayload{FileID: fileID}); err != nil {
				s.log.Warn(ctx, "stop-typing broadcast failed", "file", fileID, "error", err.Error())
			}
		}
	})
	s.mu.Unlock()
}

func (s *Store) removeTyping(fileID string) {
	s.typing.Update(func(m map[string]TypingIndicator) map[string]TypingIndicator {
		if _, ok := m[fileID]; !ok {
			return m
		}
		next := maps.Clone(m)
		delete(next, fileID)
		return next
	})
}

// HandleDisconnect drops all presence-derived state. Everything advisory is
// stale once the connection is gone; no partial repair is attempted.
func (s *Store) HandleDisconnect() {
	s.mu.Lock()
	for id, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, id)
	}
	s.localTyping = ""
	s.mu.Unlock()

	s.users.Set(map[string]ActiveUser{})
	s.locks.Set(map[string]FileLock{})
	s.typing.Set(map[string]TypingIndicator{})
	s.cursors.Set(map[string]CursorPosition{})
	s.selections.Set(map[string]SelectionRange{})
}

// HandleReconnect re-announces presence for the last known path.
func (s *Store) HandleReconnect(ctx context.Context) {
	s.mu.Lock()
	path := s.currentPath
	s.mu.Unlock()
	s.AnnouncePresence(ctx, path)
}

// Stats reports roster and lock counts for status displays.
func (s *Store) Stats() Stats {
	return Stats{
		ActiveUsers: len(s.users.Get()),
		LockedFiles: len(s.locks.Get()),
	}
}

// RecentActivities returns up to n feed entries, newest first by event
// timestamp. Entries are appended in processing order, which may differ from
// server order, so display reads sort by timestamp.
func (s *Store) RecentActivities(n int) []FileActivity {
	all := s.activities.Get()
	out := make([]FileActivity, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// appendActivity appends to the bounded feed, evicting the oldest entries.
func (s *Store) appendActivity(a FileActivity) {
	s.activities.Update(func(feed []FileActivity) []FileActivity {
		next := make([]FileActivity, 0, len(feed)+1)
		next = append(next, feed...)
		next = append(next, a)
		if len(next) > maxActivities {
			next = next[len(next)-maxActivities:]
		}
		return next
	})
}
