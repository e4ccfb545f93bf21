package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get([]byte("missing"))
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, db.Put([]byte("a"), []byte("1")))
	value, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	has, err := db.Has([]byte("a"))
	require.NoError(t, err)
	require.True(t, has)

	batch := NewBatch()
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("a"))
	require.Equal(t, 2, batch.Len())
	require.NoError(t, db.Write(batch))

	has, err = db.Has([]byte("a"))
	require.NoError(t, err)
	require.False(t, has)
	value, err = db.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)

	require.NoError(t, db.Delete([]byte("b")))
	require.NoError(t, db.Delete([]byte("b")))
	_, err = db.Get([]byte("b"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestBoltDB(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "state", "state.bolt"))
	require.NoError(t, err)
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestOpenBackends(t *testing.T) {
	for _, backend := range []string{BackendLevelDB, BackendBolt} {
		db, err := Open(backend, t.TempDir())
		require.NoError(t, err, backend)
		require.NoError(t, db.Put([]byte("k"), []byte("v")))
		db.Close()
	}
	_, err := Open("rocksdb", t.TempDir())
	var unknown *UnknownBackendError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "rocksdb", unknown.Backend)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	buf := []byte("x")
	require.NoError(t, db.Put([]byte("k"), buf))
	buf[0] = 'y'
	value, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), value)
}
