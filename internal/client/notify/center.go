// Package notify implements the in-memory notification center: a bounded,
// observable list of transient user-facing messages with auto-dismiss timers
// and progress entries that update in place.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// Type styles a notification.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Progress tracks completion of a long-running operation.
type Progress struct {
	Value int64
	Total int64
}

// Notification is a single entry in the center's list.
type Notification struct {
	ID          string
	Type        Type
	Title       string
	Message     string
	Dismissible bool
	Progress    *Progress
	Timestamp   time.Time
}

// Options parameterize Show. A zero Duration selects the per-type default;
// Sticky disables auto-dismiss regardless of Duration.
type Options struct {
	Type        Type
	Title       string
	Message     string
	Duration    time.Duration
	Sticky      bool
	Dismissible *bool
	Progress    *Progress
}

// Timings collects the center's delay knobs so tests can shrink them.
type Timings struct {
	DefaultDuration time.Duration
	ErrorDuration   time.Duration
	CompletionDelay time.Duration
	CompletionGrace time.Duration
}

// DefaultTimings: errors stay twice as long as everything else; completed
// progress entries are shown briefly before removal.
func DefaultTimings() Timings {
	return Timings{
		DefaultDuration: 5 * time.Second,
		ErrorDuration:   10 * time.Second,
		CompletionDelay: 500 * time.Millisecond,
		CompletionGrace: 2 * time.Second,
	}
}

// maxVisible caps retained non-progress notifications; oldest are dropped.
const maxVisible = 5

// Center is the process-wide notification queue. All operations are
// in-memory and cannot fail.
type Center struct {
	mu      sync.Mutex
	items   []Notification
	timers  map[string]*time.Timer
	list    *store.Store[[]Notification]
	timings Timings
	log     logging.Logger
}

func New(log logging.Logger) *Center {
	return NewWithTimings(log, DefaultTimings())
}

func NewWithTimings(log logging.Logger, timings Timings) *Center {
	if log == nil {
		log = logging.Nop()
	}
	return &Center{
		timers:  make(map[string]*time.Timer),
		list:    store.New([]Notification{}),
		timings: timings,
		log:     log,
	}
}

// Notifications exposes the observable list in insertion order.
func (c *Center) Notifications() *store.Store[[]Notification] {
	return c.list
}

// Show enqueues a notification and returns its id immediately.
func (c *Center) Show(opts Options) string {
	n := Notification{
		ID:          uuid.NewString(),
		Type:        opts.Type,
		Title:       opts.Title,
		Message:     opts.Message,
		Dismissible: true,
		Progress:    opts.Progress,
		Timestamp:   time.Now().UTC(),
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if opts.Dismissible != nil {
		n.Dismissible = *opts.Dismissible
	}

	duration := opts.Duration
	if duration == 0 {
		if n.Type == TypeError {
			duration = c.timings.ErrorDuration
		} else {
			duration = c.timings.DefaultDuration
		}
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.trimLocked()
	if !opts.Sticky && n.Progress == nil && duration > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(duration, func() { c.Dismiss(id) })
	}
	c.publishLocked()
	c.mu.Unlock()

	return n.ID
}

func (c *Center) Success(title, message string) string {
	return c.Show(Options{Type: TypeSuccess, Title: title, Message: message})
}

func (c *Center) Error(title, message string) string {
	return c.Show(Options{Type: TypeError, Title: title, Message: message})
}

func (c *Center) Warning(title, message string) string {
	return c.Show(Options{Type: TypeWarning, Title: title, Message: message})
}

func (c *Center) Info(title, message string) string {
	return c.Show(Options{Type: TypeInfo, Title: title, Message: message})
}

// Progress creates a progress notification, or updates the existing one with
// the same title in place instead of stacking duplicates.
func (c *Center) Progress(title string, value, total int64, message string) string {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].Progress != nil && c.items[i].Title == title {
			id := c.items[i].ID
			c.mu.Unlock()
			c.UpdateProgress(id, value, total, message)
			return id
		}
	}
	c.mu.Unlock()

	dismissible := false
	return c.Show(Options{
		Type:        TypeInfo,
		Title:       title,
		Message:     message,
		Sticky:      true,
		Dismissible: &dismissible,
		Progress:    &Progress{Value: value, Total: total},
	})
}

// UpdateProgress mutates the matching entry's progress fields. On reaching
// the total the entry flips to a dismissible success state that stays visible
// for a short delay, then is removed after a grace period. The two-stage
// delay is intentional so the completed state is actually seen.
func (c *Center) UpdateProgress(id string, value, total int64, message string) {
	c.mu.Lock()
	idx := -1
	for i := range c.items {
		if c.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || c.items[idx].Progress == nil {
		c.mu.Unlock()
		return
	}

	c.items[idx].Progress = &Progress{Value: value, Total: total}
	if message != "" {
		c.items[idx].Message = message
	}

	completed := total > 0 && value >= total
	if completed {
		c.items[idx].Type = TypeSuccess
		c.items[idx].Dismissible = true
		if _, armed := c.timers[id]; !armed {
			c.timers[id] = time.AfterFunc(c.timings.CompletionDelay, func() {
				c.mu.Lock()
				if _, still := c.timers[id]; !still {
					c.mu.Unlock()
					return
				}
				c.timers[id] = time.AfterFunc(c.timings.CompletionGrace, func() { c.Dismiss(id) })
				c.mu.Unlock()
			})
		}
	}
	c.publishLocked()
	c.mu.Unlock()
}

// Dismiss removes a notification and cancels its pending timer.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	kept := c.items[:0]
	for _, n := range c.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.items = kept
	c.publishLocked()
	c.mu.Unlock()
}

// DismissAll clears the list and every pending timer.
func (c *Center) DismissAll() {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.items = nil
	c.publishLocked()
	c.mu.Unlock()
}

// trimLocked drops the oldest non-progress entries beyond the cap. Progress
// entries are exempt; they are few and short-lived.
func (c *Center) trimLocked() {
	plain := 0
	for _, n := range c.items {
		if n.Progress == nil {
			plain++
		}
	}
	if plain <= maxVisible {
		return
	}

	drop := plain - maxVisible
	kept := make([]Notification, 0, len(c.items)-drop)
	for _, n := range c.items {
		if drop > 0 && n.Progress == nil {
			drop--
			if t, ok := c.timers[n.ID]; ok {
				t.Stop()
				delete(c.timers, n.ID)
			}
			continue
		}
		kept = append(kept, n)
	}
	c.items = kept
}

func (c *Center) publishLocked() {
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	c.list.Set(out)
}
