package searches

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
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
	return db
}

func TestAdd_DedupesAndReorders(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	require.NoError(t, r.Add(ctx, "report", t0, 10))
	require.NoError(t, r.Add(ctx, "invoice", t0.Add(time.Minute), 10))
	require.NoError(t, r.Add(ctx, "report", t0.Add(2*time.Minute), 10))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"report", "invoice"}, got)
}

func TestAdd_PrunesBeyondKeep(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	for i := 0; i < 12; i++ {
		q := fmt.Sprintf("query-%02d", i)
		require.NoError(t, r.Add(ctx, q, t0.Add(time.Duration(i)*time.Minute), 10))
	}

	got, err := r.Recent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "query-11", got[0])
	assert.Equal(t, "query-02", got[9])
}

func TestRemove_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "report", time.Unix(1000, 0), 10))
	require.NoError(t, r.Remove(ctx, "report"))
	require.NoError(t, r.Remove(ctx, "report"))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "a", time.Unix(1000, 0), 10))
	require.NoError(t, r.Add(ctx, "b", time.Unix(1001, 0), 10))
	require.NoError(t, r.Clear(ctx))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
