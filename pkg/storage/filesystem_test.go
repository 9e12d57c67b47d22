package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveTruncates(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("students.json", []byte("a much longer first payload")))
	require.NoError(t, store.Save("students.json", []byte("[]")))

	data, err := store.Read("students.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.True(t, store.Exists("students.json"))
}

func TestLocalStorageReadMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, store.Exists("missing.json"))
}

func TestLocalStorageNestedPathAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(filepath.Join("exports", "list.csv"), []byte("x")))
	assert.Equal(t, filepath.Join(dir, "exports", "list.csv"), store.Path(filepath.Join("exports", "list.csv")))

	require.NoError(t, store.Delete(filepath.Join("exports", "list.csv")))
	require.NoError(t, store.Delete(filepath.Join("exports", "list.csv")))
	assert.False(t, store.Exists(filepath.Join("exports", "list.csv")))
}
