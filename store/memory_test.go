package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryGetPut(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Put([]byte("a"), []byte("1")))
	v, err := m.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
}

func TestMemoryGetMissingReturnsErrNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBatchCommit(t *testing.T) {
	m := NewMemory()
	b := m.NewBatch()
	b.Put([]byte("x"), []byte("1"))
	b.Put([]byte("y"), []byte("2"))
	require.NoError(t, b.Commit())
	v, err := m.Get([]byte("y"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}

func TestMemoryCursorScansPrefixInOrder(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Put([]byte("block/002"), []byte("b")))
	require.NoError(t, m.Put([]byte("block/001"), []byte("a")))
	require.NoError(t, m.Put([]byte("other/001"), []byte("z")))

	c := m.Cursor([]byte("block/"))
	defer c.Close()
	require.True(t, c.First())
	k, err := c.Key()
	require.NoError(t, err)
	require.Equal(t, []byte("001"), k)
	require.True(t, c.Next())
	k, err = c.Key()
	require.NoError(t, err)
	require.Equal(t, []byte("002"), k)
	require.False(t, c.Next())
}
