package collab

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/identity"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
)

type sentMessage struct {
	Type string
	Data any
}

// fakeTransport records outbound sends and lets tests inject inbound
// envelopes and connection-state changes.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	connected *store.Store[bool]
	subs      []func(models.Envelope)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: store.New(true)}
}

func (f *fakeTransport) Send(eventType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Type: eventType, Data: data})
	return nil
}

func (f *fakeTransport) Connected() *store.Store[bool] { return f.connected }

func (f *fakeTransport) Subscribe(fn func(models.Envelope)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) deliver(env models.Envelope) {
	f.mu.Lock()
	subs := append([]func(models.Envelope){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(env)
	}
}

func (f *fakeTransport) sentTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Type)
	}
	return out
}

func envelope(t *testing.T, eventType, userID string, payload any, at time.Time) models.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return models.Envelope{Type: eventType, Data: data, UserID: userID, Timestamp: at}
}

func testConfig() Config {
	return Config{
		IdleAfter:     60 * time.Second,
		EvictAfter:    300 * time.Second,
		SweepInterval: time.Hour, // sweeps are driven manually in tests
		TypingExpiry:  100 * time.Millisecond,
	}
}

func newTestStore(t *testing.T) (*Store, *fakeTransport, *notify.Center) {
	t.Helper()
	tr := newFakeTransport()
	center := notify.New(nil)
	me := &identity.Static{Identity: identity.Identity{ID: "me", Name: "Me", Email: "me@example.com"}}
	s := New(tr, me, center, nil, testConfig())
	return s, tr, center
}

func TestIdleDecay(t *testing.T) {
	s, _, _ := newTestStore(t)

	base := time.Now()
	s.now = func() time.Time { return base }

	s.handleEvent(context.Background(), envelope(t, models.EventUserJoined, "u1",
		models.PresencePayload{ID: "u1", Name: "Alice", CurrentPath: "/"}, base))

	require.Contains(t, s.ActiveUsers().Get(), "u1")
	assert.Equal(t, StatusActive, s.ActiveUsers().Get()["u1"].Status)

	s.now = func() time.Time { return base.Add(61 * time.Second) }
	s.sweep()
	assert.Equal(t, StatusIdle, s.ActiveUsers().Get()["u1"].Status)

	s.now = func() time.Time { return base.Add(301 * time.Second) }
	s.sweep()
	assert.NotContains(t, s.ActiveUsers().Get(), "u1")
}

func TestActivityResetsIdleClock(t *testing.T) {
	s, _, _ := newTestStore(t)

	base := time.Now()
	s.now = func() time.Time { return base }
	s.handleEvent(context.Background(), envelope(t, models.EventUserJoined, "u1",
		models.PresencePayload{ID: "u1", Name: "Alice"}, base))

	// A lock event 50s in refreshes the user's activity clock.
	at := base.Add(50 * time.Second)
	s.handleEvent(context.Background(), envelope(t, models.EventFileLocked, "u1",
		models.LockPayload{FileID: "f1", FileName: "a.txt", UserName: "Alice"}, at))

	s.now = func() time.Time { return base.Add(100 * time.Second) }
	s.sweep()
	assert.Equal(t, StatusActive, s.ActiveUsers().Get()["u1"].Status,
		"only 50s since last activity, user must still be active")
}

func TestTypingDebounce(t *testing.T) {
	s, tr, _ := newTestStore(t)
	ctx := context.Background()

	s.StartTyping(ctx, "f1", "a.txt")
	time.Sleep(60 * time.Millisecond)
	s.StartTyping(ctx, "f1", "a.txt")

	// The first timer would have fired by now if the second call had not
	// reset it.
	time.Sleep(60 * time.Millisecond)
	assert.Contains(t, s.TypingIndicators().Get(), "f1")

	time.Sleep(120 * time.Millisecond)
	assert.NotContains(t, s.TypingIndicators().Get(), "f1")

	stops := 0
	for _, typ := range tr.sentTypes() {
		if typ == models.EventUserStoppedTyping {
			stops++
		}
	}
	assert.Equal(t, 1, stops, "a single auto-stop must be broadcast")
}

func TestStopTyping_Explicit(t *testing.T) {
	s, tr, _ := newTestStore(t)
	ctx := context.Background()

	s.StartTyping(ctx, "f1", "a.txt")
	s.StopTyping(ctx)

	assert.NotContains(t, s.TypingIndicators().Get(), "f1")
	assert.Contains(t, tr.sentTypes(), models.EventUserStoppedTyping)

	// The cancelled timer must not fire a second stop.
	time.Sleep(150 * time.Millisecond)
	stops := 0
	for _, typ := range tr.sentTypes() {
		if typ == models.EventUserStoppedTyping {
			stops++
		}
	}
	assert.Equal(t, 1, stops)
}

func TestRemoteTyping_ExpiresWithoutBroadcast(t *testing.T) {
	s, tr, _ := newTestStore(t)

	s.handleEvent(context.Background(), envelope(t, models.EventUserTyping, "u2",
		models.TypingPayload{FileID: "f9", FileName: "b.txt", UserName: "Bob"}, time.Now()))

	require.Contains(t, s.TypingIndicators().Get(), "f9")

	time.Sleep(150 * time.Millisecond)
	assert.NotContains(t, s.TypingIndicators().Get(), "f9")
	assert.NotContains(t, tr.sentTypes(), models.EventUserStoppedTyping,
		"remote indicators expire silently")
}

func TestLockRoundTrip(t *testing.T) {
	s, tr, _ := newTestStore(t)
	ctx := context.Background()

	s.LockFile(ctx, "x", "x.txt")
	assert.True(t, s.IsFileLocked("x"))
	assert.Contains(t, tr.sentTypes(), models.EventFileLocked)

	// A remote lock for an unrelated id does not affect x.
	s.handleEvent(ctx, envelope(t, models.EventFileLocked, "u2",
		models.LockPayload{FileID: "y", FileName: "y.txt", UserName: "Bob"}, time.Now()))
	assert.True(t, s.IsFileLocked("x"))
	assert.True(t, s.IsFileLocked("y"))

	s.UnlockFile(ctx, "x")
	assert.False(t, s.IsFileLocked("x"))
	assert.Contains(t, tr.sentTypes(), models.EventFileUnlocked)
}

func TestAnnouncePresence_NoIdentityIsNoop(t *testing.T) {
	tr := newFakeTransport()
	s := New(tr, &identity.Static{}, notify.New(nil), nil, testConfig())

	s.AnnouncePresence(context.Background(), "/docs")
	s.LockFile(context.Background(), "f", "f.txt")
	s.StartTyping(context.Background(), "f", "f.txt")

	assert.Empty(t, tr.sentTypes())
	assert.Empty(t, s.ActiveUsers().Get())
}

func TestDisconnectReset(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	s.AnnouncePresence(ctx, "/")
	s.handleEvent(ctx, envelope(t, models.EventUserJoined, "u1",
		models.PresencePayload{ID: "u1", Name: "Alice"}, now))
	s.LockFile(ctx, "f1", "a.txt")
	s.StartTyping(ctx, "f1", "a.txt")

	require.NotEmpty(t, s.ActiveUsers().Get())
	require.NotEmpty(t, s.FileLocks().Get())
	require.NotEmpty(t, s.TypingIndicators().Get())

	s.HandleDisconnect()

	assert.Empty(t, s.ActiveUsers().Get())
	assert.Empty(t, s.FileLocks().Get())
	assert.Empty(t, s.TypingIndicators().Get())
}

func TestReconnect_ReannouncesLastPath(t *testing.T) {
	s, tr, _ := newTestStore(t)
	ctx := context.Background()

	s.AnnouncePresence(ctx, "/projects")
	s.HandleDisconnect()
	s.HandleReconnect(ctx)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.sent, 2)
	p, ok := tr.sent[1].Data.(models.PresencePayload)
	require.True(t, ok)
	assert.Equal(t, "/projects", p.CurrentPath)
	assert.Equal(t, models.EventUserJoined, tr.sent[1].Type)
}

func TestSelfEchoSuppression(t *testing.T) {
	s, _, center := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	s.handleEvent(ctx, envelope(t, models.EventUserJoined, "me",
		models.PresencePayload{ID: "me", Name: "Me"}, now))
	assert.Empty(t, center.Notifications().Get(), "own echo must not notify")

	s.handleEvent(ctx, envelope(t, models.EventUserJoined, "u2",
		models.PresencePayload{ID: "u2", Name: "Bob"}, now))
	require.Len(t, center.Notifications().Get(), 1)

	s.handleEvent(ctx, envelope(t, models.EventFileAdded, "me",
		models.FileEventPayload{FileID: "f1", FileName: "a.txt", UserName: "Me"}, now))
	assert.Len(t, center.Notifications().Get(), 1, "own file event must not notify")

	s.handleEvent(ctx, envelope(t, models.EventFileAdded, "u2",
		models.FileEventPayload{FileID: "f1", FileName: "a.txt", UserName: "Bob"}, now))
	assert.Len(t, center.Notifications().Get(), 2)
}

func TestActivityFeed_BoundedAndTimestampSorted(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	// Delivered out of chronological order on purpose.
	s.handleEvent(ctx, envelope(t, models.EventFileUpdated, "u1",
		models.FileEventPayload{FileID: "f2", FileName: "late.txt", UserName: "Alice"}, base.Add(time.Minute)))
	s.handleEvent(ctx, envelope(t, models.EventFileAdded, "u1",
		models.FileEventPayload{FileID: "f1", FileName: "early.txt", UserName: "Alice"}, base))

	recent := s.RecentActivities(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "late.txt", recent[0].FileName, "display order is by timestamp, not insertion")

	for i := 0; i < 150; i++ {
		s.handleEvent(ctx, envelope(t, models.EventFileAdded, "u1",
			models.FileEventPayload{FileID: "f", FileName: "x", UserName: "Alice"}, base.Add(time.Duration(i)*time.Second)))
	}
	assert.Len(t, s.Activities().Get(), 100)
}

func TestPresenceUpdate_CreatesMissingUser(t *testing.T) {
	s, _, _ := newTestStore(t)

	s.handleEvent(context.Background(), envelope(t, models.EventPresenceUpdate, "u7",
		models.PresencePayload{ID: "u7", Name: "Eve", CurrentPath: "/tmp"}, time.Now()))

	u, ok := s.ActiveUsers().Get()["u7"]
	require.True(t, ok, "an update for an unknown user creates the entry")
	assert.Equal(t, "/tmp", u.CurrentPath)
}

func TestStartViaTransport_ConnectionLifecycle(t *testing.T) {
	s, tr, _ := newTestStore(t)
	ctx := context.Background()

	s.Start(ctx)
	defer s.Close()

	s.AnnouncePresence(ctx, "/ws")
	tr.deliver(envelope(t, models.EventUserJoined, "u1",
		models.PresencePayload{ID: "u1", Name: "Alice"}, time.Now()))
	require.Contains(t, s.ActiveUsers().Get(), "u1")

	tr.connected.Set(false)
	assert.Empty(t, s.ActiveUsers().Get(), "disconnect clears the roster")

	tr.connected.Set(true)
	assert.Contains(t, s.ActiveUsers().Get(), "me", "reconnect re-announces presence")
}

func TestStats(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.AnnouncePresence(ctx, "/")
	s.LockFile(ctx, "f1", "a.txt")
	s.handleEvent(ctx, envelope(t, models.EventUserJoined, "u1",
		models.PresencePayload{ID: "u1", Name: "Alice"}, time.Now()))

	stats := s.Stats()
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 1, stats.LockedFiles)
}
