package explorer

import (
	"bytes"
	"testing"

	"github.com/amjuarez/bytecoin-sub003/cache"
	"github.com/amjuarez/bytecoin-sub003/config"
	"github.com/amjuarez/bytecoin-sub003/crypto"
	"github.com/amjuarez/bytecoin-sub003/cryptonote"
	"github.com/amjuarez/bytecoin-sub003/currency"
	"github.com/amjuarez/bytecoin-sub003/rawblockstore"
	"github.com/amjuarez/bytecoin-sub003/store"
	"github.com/amjuarez/bytecoin-sub003/validator"
	"github.com/stretchr/testify/require"
)

// buildAndPush constructs a version-1 block extending prev with a single
// key output of amount, encodes it the way tree.encodeRawBlock does, and
// pushes it onto c, returning the block's hash.
func buildAndPush(t *testing.T, c *cache.BlockchainCache, height uint32, prev crypto.Hash256, amount uint64) crypto.Hash256 {
	t.Helper()
	block := &cryptonote.Block{
		BlockHeader: cryptonote.BlockHeader{
			MajorVersion: cryptonote.BlockMajorVersion1,
			Timestamp:    1000 + uint64(height)*200,
			PrevID:       prev,
		},
		MinerTx: cryptonote.Transaction{
			TransactionPrefix: cryptonote.TransactionPrefix{
				Version: 1,
				Inputs:  []cryptonote.Input{{Generate: &cryptonote.InputGenerate{Height: uint64(height)}}},
				Outputs: []cryptonote.Output{{
					Amount: amount,
					Target: cryptonote.OutputTarget{ToKey: &cryptonote.OutputToKey{
						Key: crypto.FastHash([]byte{byte(height), byte(height >> 8)}),
					}},
				}},
			},
		},
	}
	cb := cryptonote.NewCachedBlock(block)
	hash, err := cb.Hash()
	require.NoError(t, err)

	var blockBuf bytes.Buffer
	require.NoError(t, cryptonote.EncodeBlock(&blockBuf, block))

	require.NoError(t, c.PushBlock(cb, nil, validator.New(), uint64(blockBuf.Len()), amount, 1,
		rawblockstore.RawBlock{BlockBytes: blockBuf.Bytes()}))
	return hash
}

func testCacheAndCurrency(t *testing.T) (*currency.Currency, *cache.BlockchainCache) {
	t.Helper()
	p, err := config.NewBuilder().Build()
	require.NoError(t, err)
	cur := currency.New(p)
	raw, err := rawblockstore.Open(store.NewMemory())
	require.NoError(t, err)
	return cur, cache.New(cur, raw)
}

func TestFillBlockDetailsGenesis(t *testing.T) {
	cur, c := testCacheAndCurrency(t)
	var zero crypto.Hash256
	genesisHash := buildAndPush(t, c, 0, zero, 0)

	b := New(cur, c)
	details, err := b.FillBlockDetails(0)
	require.NoError(t, err)

	require.Equal(t, uint32(0), details.Height)
	require.Equal(t, genesisHash, details.Hash)
	require.Equal(t, cryptonote.BlockMajorVersion1, details.MajorVersion)
	require.False(t, details.IsOrphaned)
	require.Equal(t, uint64(0), details.Reward)
	require.Len(t, details.Transactions, 1)
	require.True(t, details.Transactions[0].InBlockchain)
	require.Equal(t, uint32(0), details.Transactions[0].BlockHeight)
}

func TestFillBlockDetailsAssignsOutputGlobalIndex(t *testing.T) {
	cur, c := testCacheAndCurrency(t)
	var zero crypto.Hash256
	prev := buildAndPush(t, c, 0, zero, 0)
	_ = buildAndPush(t, c, 1, prev, 500)

	b := New(cur, c)
	details, err := b.FillBlockDetails(1)
	require.NoError(t, err)

	require.Len(t, details.Transactions, 1)
	outputs := details.Transactions[0].Outputs
	require.Len(t, outputs, 1)
	require.Equal(t, uint64(500), outputs[0].Amount)
	require.Equal(t, uint64(0), outputs[0].GlobalIndex)
	require.NotNil(t, outputs[0].ToKey)
}
