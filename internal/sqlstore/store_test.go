package sqlstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenStore_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpenStore_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := OpenStore(path)
		require.NoError(t, err, "open iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_records_object_seq",
	).Scan(&name)
	assert.NoError(t, err, "index missing after idempotent opens")
}

func TestOpenStore_PragmasAndVersion(t *testing.T) {
	s := openTestStore(t)

	tests := map[string]string{
		"journal_mode": "wal",
		"busy_timeout": "5000",
		"user_version": "2",
	}
	for pragma, want := range tests {
		var got string
		require.NoError(t, s.db.QueryRow("PRAGMA "+pragma).Scan(&got))
		assert.Equal(t, want, got, pragma)
	}
}

func TestStore_InsertRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.insert(ctx, "t", "1", []byte(`{"id":1}`))
	require.NoError(t, err)
	_, err = s.insert(ctx, "t", "1", []byte(`{"id":1}`))
	assert.ErrorIs(t, err, errDuplicate)

	// same id in another object is fine
	_, err = s.insert(ctx, "u", "1", []byte(`{"id":1}`))
	assert.NoError(t, err)
}

func TestStore_ScanInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.insert(ctx, "t", id, []byte(`{}`))
		require.NoError(t, err)
	}
	_, err := s.insert(ctx, "other", "z", []byte(`{}`))
	require.NoError(t, err)

	rows, err := s.scan(ctx, "t")
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	objects, err := s.Objects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "t"}, objects)
}

func TestStore_UpdateBumpsRevision(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	first, err := s.insert(ctx, "t", "1", []byte(`{"v":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	rev, err := s.update(ctx, "t", "1", func(current row) ([]byte, error) {
		assert.Equal(t, int64(1), current.rev)
		assert.JSONEq(t, `{"v":1}`, string(current.data))
		return []byte(`{"v":2}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	r, err := s.get(ctx, "t", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.rev)
	assert.JSONEq(t, `{"v":2}`, string(r.data))

	_, err = s.update(ctx, "t", "missing", func(row) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.insert(ctx, "t", "1", []byte(`{}`))
	require.NoError(t, err)

	removed, err := s.remove(ctx, "t", "1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.remove(ctx, "t", "1")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := s.count(ctx, "t")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RevisionsNeverReused(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenStore(path)
	require.NoError(t, err)

	_, err = s.insert(ctx, "t", "1", []byte(`{"v":1}`))
	require.NoError(t, err)
	updated, err := s.update(ctx, "t", "1", func(row) ([]byte, error) { return []byte(`{"v":2}`), nil })
	require.NoError(t, err)
	_, err = s.remove(ctx, "t", "1")
	require.NoError(t, err)

	recreated, err := s.insert(ctx, "t", "1", []byte(`{"v":3}`))
	require.NoError(t, err)
	assert.Greater(t, recreated, updated)

	// the counter survives a reopen even when no row holds the highest rev
	_, err = s.remove(ctx, "t", "1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	again, err := s.insert(ctx, "t", "1", []byte(`{"v":4}`))
	require.NoError(t, err)
	assert.Greater(t, again, recreated)
}
