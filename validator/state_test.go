package validator

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/stretchr/testify/require"
)

func TestNewStateIsEmpty(t *testing.T) {
	s := New()
	require.True(t, s.Empty())
	require.False(t, s.HasKeyImage(crypto.FastHash([]byte("anything"))))
	require.False(t, s.HasMultisignature(1, 0))
}

func TestAddSpentKeyImageRecordsAndDedupesLookup(t *testing.T) {
	s := New()
	ki := crypto.FastHash([]byte("ki"))
	s.AddSpentKeyImage(ki)

	require.False(t, s.Empty())
	require.True(t, s.HasKeyImage(ki))
	require.False(t, s.HasKeyImage(crypto.FastHash([]byte("other"))))
}

func TestAddSpentMultisignatureRecordsByCompositeKey(t *testing.T) {
	s := New()
	s.AddSpentMultisignature(100, 5)

	require.False(t, s.Empty())
	require.True(t, s.HasMultisignature(100, 5))
	require.False(t, s.HasMultisignature(100, 6))
	require.False(t, s.HasMultisignature(99, 5))
}

func TestStateTracksMultipleSpendsIndependently(t *testing.T) {
	s := New()
	ki1 := crypto.FastHash([]byte("ki1"))
	ki2 := crypto.FastHash([]byte("ki2"))
	s.AddSpentKeyImage(ki1)
	s.AddSpentKeyImage(ki2)
	s.AddSpentMultisignature(10, 0)
	s.AddSpentMultisignature(10, 1)

	require.Len(t, s.SpentKeyImages, 2)
	require.Len(t, s.SpentMultisignatureGlobalIdx, 2)
	require.True(t, s.HasKeyImage(ki1))
	require.True(t, s.HasKeyImage(ki2))
	require.True(t, s.HasMultisignature(10, 0))
	require.True(t, s.HasMultisignature(10, 1))
}
