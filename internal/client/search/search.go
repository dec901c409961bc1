// Package search ranks the current listing against a query and keeps a
// persisted recent-search history. It operates over the in-memory item set
// owned by the storage store, never against the server.
package search

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/searches"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/store"
	"github.com/sortedstorage/sortedstorage-cli/internal/logging"
)

// MaxRecent caps the persisted recent-search list.
const MaxRecent = 10

// Relevance tiers. An exact name match always outranks a prefix match,
// which outranks a word-boundary match, which outranks a bare substring.
const (
	scoreExact        = 100
	scorePrefix       = 75
	scoreWordBoundary = 50
	scoreSubstring    = 25
)

// Result is one ranked match.
type Result struct {
	Item  models.Item
	Score int
}

// State is the published search state.
type State struct {
	Query   string
	Results []Result
	Recent  []string
}

// Source supplies the item set to rank. The storage store implements it.
type Source interface {
	Items() []models.Item
}

type Store struct {
	source Source
	repo   searches.Repository
	log    logging.Logger
	now    func() time.Time

	state *store.Store[State]
}

func New(source Source, repo searches.Repository, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		source: source,
		repo:   repo,
		log:    log,
		now:    time.Now,
		state:  store.New(State{}),
	}
}

func (s *Store) State() *store.Store[State] { return s.state }

// Load populates the recent-search list from the database.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	recent, err := s.repo.Recent(ctx, MaxRecent)
	if err != nil {
		return err
	}
	s.state.Update(func(st State) State {
		st.Recent = recent
		return st
	})
	return nil
}

// Search ranks the source items against query and publishes the results.
// Non-empty queries are recorded in the recent-search history; history
// persistence failures are logged, never surfaced.
func (s *Store) Search(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	results := Rank(s.source.Items(), query)

	if query != "" && s.repo != nil {
		if err := s.repo.Add(ctx, query, s.now(), MaxRecent); err != nil {
			s.log.Warn(ctx, "recording search failed", "error", err.Error())
		}
	}

	recent := s.state.Get().Recent
	if query != "" && s.repo != nil {
		if fresh, err := s.repo.Recent(ctx, MaxRecent); err == nil {
			recent = fresh
		}
	}

	s.state.Set(State{Query: query, Results: results, Recent: recent})
	return results
}

// Clear resets the query and results, keeping the recent history.
func (s *Store) Clear() {
	s.state.Update(func(st State) State {
		st.Query = ""
		st.Results = nil
		return st
	})
}

// RemoveRecent drops one entry from the history.
func (s *Store) RemoveRecent(ctx context.Context, query string) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Remove(ctx, query); err != nil {
		return err
	}
	return s.Load(ctx)
}

// ClearRecent empties the history.
func (s *Store) ClearRecent(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.state.Update(func(st State) State {
		st.Recent = nil
		return st
	})
	return nil
}

// Suggestions returns completions for a partial query: matching recent
// searches first, then item names with a prefix match, deduplicated, capped
// at limit.
func (s *Store) Suggestions(prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}

	for _, q := range s.state.Get().Recent {
		if strings.HasPrefix(strings.ToLower(q), prefix) {
			add(q)
		}
	}
	for _, it := range s.source.Items() {
		if strings.HasPrefix(strings.ToLower(it.Name), prefix) {
			add(it.Name)
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Rank scores items against query and returns matches sorted by score. Equal
// scores are broken by most recent update, then by name. An empty query
// matches nothing.
func Rank(items []models.Item, query string) []Result {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)

	var results []Result
	for _, it := range items {
		if score := scoreName(strings.ToLower(it.Name), q); score > 0 {
			results = append(results, Result{Item: it, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Item.UpdatedAt.Equal(results[j].Item.UpdatedAt) {
			return results[i].Item.UpdatedAt.After(results[j].Item.UpdatedAt)
		}
		return results[i].Item.Name < results[j].Item.Name
	})
	return results
}

func scoreName(name, query string) int {
	switch {
	case name == query:
		return scoreExact
	case strings.HasPrefix(name, query):
		return scorePrefix
	case atWordBoundary(name, query):
		return scoreWordBoundary
	case strings.Contains(name, query):
		return scoreSubstring
	}
	return 0
}

// atWordBoundary reports whether query starts a word inside name, where a
// word begins after any non-alphanumeric rune.
func atWordBoundary(name, query string) bool {
	for i := range name {
		if i == 0 {
			continue
		}
		if !strings.HasPrefix(name[i:], query) {
			continue
		}
		prev := rune(name[i-1])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
	}
	return false
}
