package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/soyeahso/gork/internal/logging"
	"github.com/soyeahso/gork/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, v)
}

func TestOpen_FileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gork.db")
	db, err := Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.FileExists(t, path)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.migrate(context.Background()))

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TableExists(t *testing.T) {
	db := testDB(t)

	var name string
	err := db.sql.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", "user_rate_state",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "user_rate_state", name)
}

// --- RateStateStore tests ---

func TestRateStateStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewRateStateStore(testDB(t))

	_, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, s.Put(ctx, "u1", ratelimit.State{Count: 3, WindowStart: start}))

	st, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, st.Count)
	assert.True(t, start.Equal(st.WindowStart))

	require.NoError(t, s.Put(ctx, "u1", ratelimit.State{Count: 4, WindowStart: start}))
	st, _, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Count)

	require.NoError(t, s.Delete(ctx, "u1"))
	_, ok, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateStateStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := NewRateStateStore(testDB(t))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, "old", ratelimit.State{Count: 1, WindowStart: now.Add(-2 * time.Hour)}))
	require.NoError(t, s.Put(ctx, "new", ratelimit.State{Count: 1, WindowStart: now}))

	n, err := s.Prune(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, _ := s.Get(ctx, "old")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "new")
	assert.True(t, ok)
}

func TestRateStateStore_BacksLimiter(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := ratelimit.Config{Allowed: 2, Interval: 10 * time.Minute}

	l := ratelimit.New(cfg, NewRateStateStore(db))
	for range 2 {
		ok, err := l.Admit(ctx, "u1", false, now)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// A new limiter over the same database sees the persisted count.
	restarted := ratelimit.New(cfg, NewRateStateStore(db))
	ok, err := restarted.Admit(ctx, "u1", false, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}
