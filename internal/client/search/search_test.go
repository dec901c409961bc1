package search

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/repositories/searches"

	_ "modernc.org/sqlite"
)

type staticSource []models.Item

func (s staticSource) Items() []models.Item { return s }

func named(names ...string) staticSource {
	items := make(staticSource, 0, len(names))
	for i, n := range names {
		items = append(items, models.Item{ID: string(rune('a' + i)), Name: n, Type: models.ItemTypeFile})
	}
	return items
}

func newTestRepo(t *testing.T) searches.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE recent_searches (
  query       TEXT PRIMARY KEY,
  searched_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return searches.NewSQLiteRepository(db)
}

func TestRank_RelevanceTiers(t *testing.T) {
	items := named("report", "report-2024.pdf", "annual report.pdf", "xreport.txt", "unrelated.txt")

	results := Rank(items, "report")
	require.Len(t, results, 4)

	assert.Equal(t, "report", results[0].Item.Name)
	assert.Equal(t, scoreExact, results[0].Score)
	assert.Equal(t, "report-2024.pdf", results[1].Item.Name)
	assert.Equal(t, scorePrefix, results[1].Score)
	assert.Equal(t, "annual report.pdf", results[2].Item.Name)
	assert.Equal(t, scoreWordBoundary, results[2].Score)
	assert.Equal(t, "xreport.txt", results[3].Item.Name)
	assert.Equal(t, scoreSubstring, results[3].Score)
}

func TestRank_EqualScoresPreferNewerItems(t *testing.T) {
	t0 := time.Unix(1000, 0)
	items := []models.Item{
		{ID: "a", Name: "report-old.pdf", Type: models.ItemTypeFile, UpdatedAt: t0},
		{ID: "b", Name: "report-new.pdf", Type: models.ItemTypeFile, UpdatedAt: t0.Add(time.Hour)},
		{ID: "c", Name: "report-also-old.pdf", Type: models.ItemTypeFile, UpdatedAt: t0},
	}

	results := Rank(items, "report")
	require.Len(t, results, 3)

	// All three are prefix matches; the newest comes first, then names.
	assert.Equal(t, "report-new.pdf", results[0].Item.Name)
	assert.Equal(t, "report-also-old.pdf", results[1].Item.Name)
	assert.Equal(t, "report-old.pdf", results[2].Item.Name)
}

func TestRank_CaseInsensitive(t *testing.T) {
	results := Rank(named("Report.PDF"), "report")
	require.Len(t, results, 1)
	assert.Equal(t, scorePrefix, results[0].Score)
}

func TestRank_EmptyQueryMatchesNothing(t *testing.T) {
	assert.Nil(t, Rank(named("a.txt"), ""))
}

func TestSearch_RecordsRecentDeduplicated(t *testing.T) {
	s := New(named("report.pdf"), newTestRepo(t), nil)
	ctx := context.Background()

	s.Search(ctx, "report")
	s.Search(ctx, "invoice")
	s.Search(ctx, "report")

	recent := s.State().Get().Recent
	assert.Equal(t, []string{"report", "invoice"}, recent)
}

func TestSearch_EmptyQueryNotRecorded(t *testing.T) {
	s := New(named("report.pdf"), newTestRepo(t), nil)
	ctx := context.Background()

	s.Search(ctx, "  ")
	assert.Empty(t, s.State().Get().Recent)
}

func TestRecentHistory_CappedAtTen(t *testing.T) {
	s := New(named(), newTestRepo(t), nil)
	ctx := context.Background()

	queries := []string{"q0", "q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11"}
	for _, q := range queries {
		s.Search(ctx, q)
	}

	recent := s.State().Get().Recent
	require.Len(t, recent, MaxRecent)
	assert.Equal(t, "q11", recent[0])
	assert.NotContains(t, recent, "q0")
	assert.NotContains(t, recent, "q1")
}

func TestClear_KeepsHistory(t *testing.T) {
	s := New(named("report.pdf"), newTestRepo(t), nil)
	ctx := context.Background()

	s.Search(ctx, "report")
	s.Clear()

	st := s.State().Get()
	assert.Empty(t, st.Query)
	assert.Empty(t, st.Results)
	assert.Equal(t, []string{"report"}, st.Recent)
}

func TestSuggestions_RecentFirstThenItems(t *testing.T) {
	s := New(named("reptiles.txt", "report.pdf"), newTestRepo(t), nil)
	ctx := context.Background()

	s.Search(ctx, "rep-old-query")

	got := s.Suggestions("rep", 5)
	require.NotEmpty(t, got)
	assert.Equal(t, "rep-old-query", got[0])
	assert.Contains(t, got, "report.pdf")
	assert.Contains(t, got, "reptiles.txt")
}

func TestSuggestions_CapAndDedup(t *testing.T) {
	s := New(named("a1", "a2", "a3"), newTestRepo(t), nil)

	got := s.Suggestions("a", 2)
	assert.Len(t, got, 2)

	assert.Nil(t, s.Suggestions("", 5))
}

func TestLoad_RestoresHistory(t *testing.T) {
	repo := newTestRepo(t)
	s := New(named(), repo, nil)
	ctx := context.Background()
	s.Search(ctx, "report")

	fresh := New(named(), repo, nil)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, []string{"report"}, fresh.State().Get().Recent)
}
