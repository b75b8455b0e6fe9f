package cache

import (
	"testing"

	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/validator"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *BlockchainCache {
	t.Helper()
	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	cur := currency.New(p)
	raw, err := rawblockstore.Open(store.NewMemory())
	require.NoError(t, err)
	return New(cur, raw)
}

// keyAt returns a distinct one-time output key for height i.
func keyAt(i uint32) crypto.PublicKey {
	return crypto.FastHash([]byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)})
}

// buildBlock constructs a version-1 block extending prev at height, with
// a single key output of amount paying keyAt(height).
func buildBlock(prev crypto.Hash256, height uint32, amount uint64) *cryptonote.CachedBlock {
	block := &cryptonote.Block{
		BlockHeader: cryptonote.BlockHeader{
			MajorVersion: cryptonote.BlockMajorVersion1,
			Timestamp:    1000 + uint64(height),
			PrevID:       prev,
		},
		MinerTx: cryptonote.Transaction{
			TransactionPrefix: cryptonote.TransactionPrefix{
				Version: 1,
				Inputs:  []cryptonote.Input{{Generate: &cryptonote.InputGenerate{Height: uint64(height)}}},
				Outputs: []cryptonote.Output{{
					Amount: amount,
					Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{Key: keyAt(height)}},
				}},
			},
		},
	}
	return cryptonote.NewCachedBlock(block)
}

// pushBlock builds and pushes a block at height extending prev, returning
// its hash for the caller to chain the next call with.
func pushBlock(t *testing.T, c *BlockchainCache, height uint32, prev crypto.Hash256, amount uint64, state *validator.State) crypto.Hash256 {
	t.Helper()
	if state == nil {
		state = validator.New()
	}
	cb := buildBlock(prev, height, amount)
	hash, err := cb.Hash()
	require.NoError(t, err)
	require.NoError(t, c.PushBlock(cb, nil, state, 100, 1000, 1, rawblockstore.RawBlock{BlockBytes: []byte{byte(height)}}))
	return hash
}

func TestPushBlockRejectsDuplicateAndNonTip(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	hash := pushBlock(t, c, 0, prev, 100, nil)

	genesis := buildBlock(prev, 0, 100)
	err := c.PushBlock(genesis, nil, validator.New(), 100, 1000, 1, rawblockstore.RawBlock{})
	require.ErrorIs(t, err, ErrDuplicateBlock)

	wrongPrev := buildBlock(crypto.FastHash([]byte("bogus")), 1, 100)
	err = c.PushBlock(wrongPrev, nil, validator.New(), 100, 1000, 1, rawblockstore.RawBlock{})
	require.ErrorIs(t, err, ErrNotTip)

	require.True(t, c.HasBlock(hash))
}

// TestSplitPreservesGlobalIndices covers the defining correctness property
// of Split: an output's per-amount global index is identical before and
// after the segment carrying it is split.
func TestSplitPreservesGlobalIndices(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 5; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}

	require.Equal(t, uint64(5), c.GetKeyOutputsCountForAmount(100, 4))
	before, ok := c.ExtractKeyOutputKeys(100, []uint64{0, 1, 2, 3, 4})
	require.True(t, ok)

	child, err := c.Split(3, store.NewMemory())
	require.NoError(t, err)

	after, ok := c.ExtractKeyOutputKeys(100, []uint64{0, 1, 2})
	require.True(t, ok)
	require.Equal(t, before[:3], after)

	afterChild, ok := child.ExtractKeyOutputKeys(100, []uint64{3, 4})
	require.True(t, ok)
	require.Equal(t, before[3:], afterChild)

	require.Equal(t, uint64(5), child.GetKeyOutputsCountForAmount(100, 4))
}

// TestCheckIfSpentCrossesSegments covers key-image lookup walking from a
// child segment into its parent after a split separates the spending
// block from the query segment.
func TestCheckIfSpentCrossesSegments(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	ki := crypto.FastHash([]byte("spent-key-image"))

	prev = pushBlock(t, c, 0, prev, 100, nil)
	state := validator.New()
	state.AddSpentKeyImage(ki)
	prev = pushBlock(t, c, 1, prev, 100, state)
	prev = pushBlock(t, c, 2, prev, 100, nil)

	require.True(t, c.CheckIfSpent(ki, 1))
	require.True(t, c.CheckIfSpent(ki, 2))
	require.False(t, c.CheckIfSpent(ki, 0))

	child, err := c.Split(2, store.NewMemory())
	require.NoError(t, err)

	require.True(t, child.CheckIfSpent(ki, 2))
	require.False(t, child.CheckIfSpent(ki, 0))
}

func TestGetRawBlockWalksToParent(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 3; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}
	child, err := c.Split(2, store.NewMemory())
	require.NoError(t, err)

	rb, err := child.GetRawBlock(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, rb.BlockBytes)

	rb, err = child.GetRawBlock(2)
	require.NoError(t, err)
	require.Equal(t, []byte{2}, rb.BlockBytes)
}
