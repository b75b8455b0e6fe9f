package cache

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/validator"
	"github.com/stretchr/testify/require"
)

// TestGetRandomOutsByAmountRespectsUnlockWindow pushes 15 blocks each
// carrying one output of amount 100 and checks that only outputs buried
// at least MinedMoneyUnlockWindow (10) blocks deep are ever selected.
func TestGetRandomOutsByAmountRespectsUnlockWindow(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 15; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}

	got := c.GetRandomOutsByAmount(100, 5, 14, 0)
	require.Len(t, got, 5)
	seen := make(map[uint64]struct{})
	for _, gi := range got {
		require.Less(t, gi, uint64(5), "only outputs at heights 0..4 are deep enough")
		seen[gi] = struct{}{}
	}
	require.Len(t, seen, 5, "selection draws without replacement")

	require.Empty(t, c.GetRandomOutsByAmount(100, 5, 3, 0),
		"no output is deep enough as of height 3")
	require.Empty(t, c.GetRandomOutsByAmount(55, 5, 14, 0),
		"unknown amount yields nothing")
}

// TestGetRandomOutsByAmountRecursesToParent splits the chain so the
// eligible outputs straddle two segments and checks the child still
// assembles the full selection.
func TestGetRandomOutsByAmountRecursesToParent(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 15; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}
	child, err := c.Split(3, store.NewMemory())
	require.NoError(t, err)

	got := child.GetRandomOutsByAmount(100, 5, 14, 0)
	require.Len(t, got, 5)
	seen := make(map[uint64]struct{})
	for _, gi := range got {
		require.Less(t, gi, uint64(5))
		seen[gi] = struct{}{}
	}
	require.Len(t, seen, 5)
}

func TestExtractKeyOutputPublicKeysResolvesAndChecksLocks(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 3; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}

	keys, result := c.ExtractKeyOutputPublicKeys(100, 2, []uint64{0, 2}, 0)
	require.Equal(t, ExtractOutputKeysSucceeded, result)
	require.Equal(t, []crypto.PublicKey{keyAt(0), keyAt(2)}, keys)

	_, result = c.ExtractKeyOutputPublicKeys(100, 2, []uint64{0, 7}, 0)
	require.Equal(t, ExtractOutputKeysInvalidGlobalIndex, result)

	// A fourth block whose miner output stays locked until height 1000.
	locked := buildBlock(prev, 3, 100)
	locked.Block.MinerTx.UnlockTime = 1000
	require.NoError(t, c.PushBlock(locked, nil, validator.New(), 100, 1000, 1,
		rawblockstore.RawBlock{BlockBytes: []byte{3}}))

	_, result = c.ExtractKeyOutputPublicKeys(100, 3, []uint64{3}, 0)
	require.Equal(t, ExtractOutputKeysOutputLocked, result)
}
