package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	out := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": sq,
	}
	if dsn := os.Getenv("LEUMAS_TEST_PG_DSN"); dsn != "" {
		pg, err := NewPgStore(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pg.Close() })
		out["postgres"] = pg
	}
	return out
}

func TestStores_WriteReadList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			col := Tasks("yoga-" + name)

			_, err := s.Read(ctx, col, "2026-02-07")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Write(ctx, col, "2026-02-07", []byte(`{"n":1}`)))
			require.NoError(t, s.Write(ctx, col, "2026-02-07--2", []byte(`{"n":2}`)))
			require.NoError(t, s.Write(ctx, col, "2026-02-06", []byte(`{"n":0}`)))
			require.NoError(t, s.Write(ctx, col, "2026-02-07", []byte(`{"n":3}`)))

			b, err := s.Read(ctx, col, "2026-02-07")
			require.NoError(t, err)
			assert.JSONEq(t, `{"n":3}`, string(b))

			keys, err := s.ListKeys(ctx, col, "2026-02-07")
			require.NoError(t, err)
			assert.Equal(t, []string{"2026-02-07", "2026-02-07--2"}, keys)

			all, err := s.ListKeys(ctx, col, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			empty, err := s.ListKeys(ctx, Tasks("missing-"+name), "")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStores_RejectTraversal(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Write(ctx, "tasks/../../etc", "x", []byte(`{}`)))
			assert.Error(t, s.Write(ctx, Tasks("a"), "", []byte(`{}`)))
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type rec struct {
		Streak int `json:"streak"`
	}
	require.NoError(t, PutJSON(ctx, s, Grass("yoga"), "stats", rec{Streak: 4}))

	var got rec
	require.NoError(t, GetJSON(ctx, s, Grass("yoga"), "stats", &got))
	assert.Equal(t, 4, got.Streak)

	assert.ErrorIs(t, GetJSON(ctx, s, Grass("yoga"), "calendar", &got), ErrNotFound)
}

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Config{DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Driver: "sqlite", DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.Error(t, err)
}
