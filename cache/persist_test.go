package cache

import (
	"bytes"
	"testing"

	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/validator"
	"github.com/stretchr/testify/require"
)

// TestSerializeDeserializeRoundTrip snapshots a populated segment and
// reloads it, checking that every index answers identically: block
// lookups by hash and timestamp, transactions, spent key images and
// multisignature spends, per-amount global index ledgers and payment
// ids all survive the trip (spec §4.5.5).
func TestSerializeDeserializeRoundTrip(t *testing.T) {
	c := testCache(t)
	ki := crypto.FastHash([]byte("round-trip-key-image"))

	var prev crypto.Hash256
	prev = pushBlock(t, c, 0, prev, 100, nil)
	state := validator.New()
	state.AddSpentKeyImage(ki)
	state.AddSpentMultisignature(100, 0)
	hash1 := pushBlock(t, c, 1, prev, 100, state)
	pushBlock(t, c, 2, hash1, 250, nil)

	var buf bytes.Buffer
	require.NoError(t, c.Serialize(&buf))

	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	cur := currency.New(p)
	raw, err := rawblockstore.Open(store.NewMemory())
	require.NoError(t, err)
	loaded, err := Deserialize(&buf, cur, nil, raw)
	require.NoError(t, err)

	require.Equal(t, c.StartIndex(), loaded.StartIndex())
	require.Equal(t, c.BlockCount(), loaded.BlockCount())

	for h := uint32(0); h < 3; h++ {
		want, err := c.GetBlockInfo(h)
		require.NoError(t, err)
		got, err := loaded.GetBlockInfo(h)
		require.NoError(t, err)
		require.Equal(t, want, got)

		index, ok := loaded.GetBlockIndexByHash(want.BlockHash)
		require.True(t, ok)
		require.Equal(t, h, index)
	}

	require.True(t, loaded.CheckIfSpent(ki, 1))
	require.False(t, loaded.CheckIfSpent(ki, 0))
	require.True(t, loaded.CheckIfSpentMultisignature(100, 0, 1))

	require.Equal(t, uint64(2), loaded.GetKeyOutputsCountForAmount(100, 2))
	require.Equal(t, uint64(1), loaded.GetKeyOutputsCountForAmount(250, 2))
	keys, result := loaded.ExtractKeyOutputPublicKeys(100, 2, []uint64{0, 1}, 0)
	require.Equal(t, ExtractOutputKeysSucceeded, result)
	require.Equal(t, []crypto.PublicKey{keyAt(0), keyAt(1)}, keys)

	hashes := loaded.GetBlockHashesByTimestamps(1000, 3)
	require.Len(t, hashes, 3)
}

// TestGetPushedBlockInfoReconstructsPushInputs checks §4.5.3: the info
// recovered for a block equals what PushBlock was originally handed,
// including the spend state needed to replay the block elsewhere.
func TestGetPushedBlockInfoReconstructsPushInputs(t *testing.T) {
	c := testCache(t)
	ki := crypto.FastHash([]byte("replayed-key-image"))

	var prev crypto.Hash256
	prev = pushBlock(t, c, 0, prev, 100, nil)
	state := validator.New()
	state.AddSpentKeyImage(ki)
	state.AddSpentMultisignature(100, 0)
	pushBlock(t, c, 1, prev, 100, state)

	info, err := c.GetPushedBlockInfo(1)
	require.NoError(t, err)
	require.Equal(t, uint64(100), info.BlockSize)
	require.Equal(t, uint64(1), info.BlockDifficulty)
	require.Equal(t, uint64(1000), info.GeneratedCoins)
	require.Equal(t, []byte{1}, info.RawBlock.BlockBytes)
	require.True(t, info.State.HasKeyImage(ki))
	require.True(t, info.State.HasMultisignature(100, 0))

	_, err = c.GetPushedBlockInfo(7)
	require.ErrorIs(t, err, ErrNotFound)
}

// TestGetPushedBlockInfoAcrossSplitBoundary checks the first block of a
// child segment recovers its difficulty and coin delta from the parent's
// running totals.
func TestGetPushedBlockInfoAcrossSplitBoundary(t *testing.T) {
	c := testCache(t)
	var prev crypto.Hash256
	for h := uint32(0); h < 4; h++ {
		prev = pushBlock(t, c, h, prev, 100, nil)
	}
	child, err := c.Split(2, store.NewMemory())
	require.NoError(t, err)

	info, err := child.GetPushedBlockInfo(2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.BlockDifficulty)
	require.Equal(t, uint64(1000), info.GeneratedCoins)

	_, err = child.GetPushedBlockInfo(1)
	require.ErrorIs(t, err, ErrNotFound)
}
