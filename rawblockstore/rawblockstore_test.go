package rawblockstore

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/stretchr/testify/require"
)

func block(b byte) RawBlock {
	return RawBlock{BlockBytes: []byte{b}, TransactionsBytes: [][]byte{{b, b}}}
}

func TestPushBackGetLen(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	require.Equal(t, uint32(0), s.Len())

	require.NoError(t, s.PushBack(block(1)))
	require.NoError(t, s.PushBack(block(2)))
	require.Equal(t, uint32(2), s.Len())

	got, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, block(2), got)
}

func TestGetOutOfRange(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	_, err = s.Get(0)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestPopBack(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	require.NoError(t, s.PushBack(block(1)))
	require.NoError(t, s.PushBack(block(2)))
	require.NoError(t, s.PopBack())
	require.Equal(t, uint32(1), s.Len())
	_, err = s.Get(1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestPopBackOnEmptyIsNoOp(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	require.NoError(t, s.PopBack())
	require.Equal(t, uint32(0), s.Len())
}

func TestClear(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	require.NoError(t, s.PushBack(block(1)))
	require.NoError(t, s.PushBack(block(2)))
	require.NoError(t, s.Clear())
	require.Equal(t, uint32(0), s.Len())
}

func TestSplitPreservesOrderAcrossParentAndChild(t *testing.T) {
	s, err := Open(store.NewMemory())
	require.NoError(t, err)
	for i := byte(1); i <= 5; i++ {
		require.NoError(t, s.PushBack(block(i)))
	}

	child, err := s.Split(3, store.NewMemory())
	require.NoError(t, err)

	require.Equal(t, uint32(3), s.Len())
	require.Equal(t, uint32(2), child.Len())

	for i := uint32(0); i < 3; i++ {
		got, err := s.Get(i)
		require.NoError(t, err)
		require.Equal(t, block(byte(i+1)), got)
	}
	for i := uint32(0); i < 2; i++ {
		got, err := child.Get(i)
		require.NoError(t, err)
		require.Equal(t, block(byte(i+4)), got)
	}
}

func TestOpenRecoversCountFromExistingKV(t *testing.T) {
	kv := store.NewMemory()
	s, err := Open(kv)
	require.NoError(t, err)
	require.NoError(t, s.PushBack(block(1)))
	require.NoError(t, s.PushBack(block(2)))

	reopened, err := Open(kv)
	require.NoError(t, err)
	require.Equal(t, uint32(2), reopened.Len())
	got, err := reopened.Get(0)
	require.NoError(t, err)
	require.Equal(t, block(1), got)
}
